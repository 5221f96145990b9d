package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-hub/contract"
	"chat-hub/errors"
)

// Supervisor runs each worker in its own goroutine, recovers panics,
// restarts the worker after a pause, and waits for every goroutine on
// shutdown. A failure in one worker must not stop the supervisor itself.
type Supervisor struct {
	Cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	restartInterval time.Duration
	workers         []contract.Worker
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every registered worker under a cancellation scope derived
// from the parent context, then blocks until all of them have returned.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

// Start launches one worker under supervision. If its Run panics, the
// panic is converted to an error and the worker restarts after the
// configured interval, until the context is done.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						s.log.Error(fmt.Sprintf("Worker %s panicked: %v", workerName, r))
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil || ctx.Err() != nil {
				return
			}

			s.log.Warn(fmt.Sprintf("Restarting %s in %s after: %v",
				workerName, s.restartInterval, err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}
