package browser

import (
	"context"
	"sync"
)

// DefaultQueueSize is the action buffer used when NewLoop gets size <= 0.
const DefaultQueueSize = 64

// Loop feeds a Controller from an ordered action queue on one goroutine and
// runs the tasks it emits in the background. It is the headless counterpart
// of the Bubble Tea message loop.
type Loop struct {
	ctrl    *Controller
	actions chan Action
	tasks   sync.WaitGroup
	stopped chan struct{}
	stop    sync.Once
}

// NewLoop returns a loop over ctrl with a queue of size actions.
func NewLoop(ctrl *Controller, size int) *Loop {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Loop{ctrl: ctrl, actions: make(chan Action, size), stopped: make(chan struct{})}
}

// Post enqueues a. It is safe from any goroutine and blocks while the queue
// is full; it returns false if ctx ended or Run returned first.
func (l *Loop) Post(ctx context.Context, a Action) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.actions <- a:
		return true
	case <-ctx.Done():
		return false
	case <-l.stopped:
		return false
	}
}

// Run handles queued actions in order until observe returns true or ctx
// ends. observe sees the state after every action along with its effects.
// Tasks are started with ctx; cancelling it abandons their completions.
// A loop runs once: after Run returns, Post drops actions and completions.
func (l *Loop) Run(ctx context.Context, observe func(LoadingState, Effects) bool) error {
	defer l.stop.Do(func() { close(l.stopped) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-l.actions:
			eff := l.ctrl.Handle(a)
			for _, task := range eff.Tasks {
				l.start(ctx, task)
			}
			if observe != nil && observe(l.ctrl.State(), eff) {
				return nil
			}
		}
	}
}

func (l *Loop) start(ctx context.Context, task Task) {
	l.tasks.Add(1)
	go func() {
		defer l.tasks.Done()
		done := task(ctx)
		l.Post(ctx, done)
	}()
}

// Wait blocks until every started task has returned. It does not need ctx to
// be cancelled once Run has returned.
func (l *Loop) Wait() {
	l.tasks.Wait()
}
