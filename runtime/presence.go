package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"chat-hub/contract"
	"chat-hub/domain/event"
)

// PresenceBroadcaster derives the public online-user list from the registry
// and pushes it to every live channel. It holds no state of its own: the
// snapshot is recomputed on each membership change, and pushing the same
// snapshot twice is harmless since clients replace their local list.
type PresenceBroadcaster struct {
	log *slog.Logger
}

func NewPresenceBroadcaster(log *slog.Logger) *PresenceBroadcaster {
	return &PresenceBroadcaster{log: log}
}

// Push sends a fresh snapshot to all channels, including the one whose
// registration or departure triggered the change.
func (p *PresenceBroadcaster) Push(ctx context.Context, registry contract.IRegistry) {
	snapshot := event.OnlineUsers{Users: registry.Snapshot()}
	for _, sink := range registry.Sinks() {
		if err := sink.Consume(ctx, snapshot); err != nil {
			p.log.Debug(fmt.Sprintf("Presence push skipped a channel: %v", err))
		}
	}
}
