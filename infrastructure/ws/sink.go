package ws

import (
	"context"
	"fmt"
	"log/slog"

	"chat-hub/domain/event"
)

// Sink bridges the router's fan-out to one socket's write pump. Consume is
// called by the router goroutine and must never block it: when the frame
// buffer is full the event is shed and the error reported to the caller.
type Sink struct {
	log    *slog.Logger
	frames chan []byte
}

func NewSink(log *slog.Logger, bufferSize int) *Sink {
	return &Sink{log: log, frames: make(chan []byte, bufferSize)}
}

func (s *Sink) Consume(ctx context.Context, e event.Event) error {
	frame, err := encodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case s.frames <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("connection backlogged, %s frame dropped", e.Name())
	}
}

// Frames is consumed by the write pump.
func (s *Sink) Frames() <-chan []byte {
	return s.frames
}
