package concurrent

import (
	"context"
	"sync"

	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

// An issued job to be executed. The context is cancelled
// once the scheduler stops, jobs still pending at that point
// are executed with the cancelled context so they can release
// whatever they hold.
type Job func(ctx context.Context)

// Scheduler executes jobs one at a time, in the same order
// they were scheduled.
type Scheduler interface {
	// Schedule a job for execution.
	Schedule(Job) error

	// How many jobs are pending.
	Pending() int

	// Wait up to the number of given jobs to be completed.
	Wait(int)

	// Stop the scheduler.
	Stop()
}

type fifo struct {
	mutex sync.Mutex

	ch        chan struct{}
	completed int
	pending   []Job
	stopped   bool

	ctx         context.Context
	cancellable context.CancelFunc

	finishes *sync.Cond
	close    chan struct{}
}

func NewScheduler() Scheduler {
	s := &fifo{
		ch:    make(chan struct{}, 1),
		close: make(chan struct{}),
	}

	s.finishes = sync.NewCond(&s.mutex)
	s.ctx, s.cancellable = context.WithCancel(context.Background())
	go s.forever()
	return s
}

// Schedule the job to be executed sometime in the future.
func (s *fifo) Schedule(j Job) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopped {
		return types.ErrSchedulerStopped
	}

	if len(s.pending) == 0 {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
	s.pending = append(s.pending, j)
	return nil
}

// How many jobs are still pending.
func (s *fifo) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.pending)
}

// Wait up to n jobs to finishes before returning.
func (s *fifo) Wait(how int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for !s.stopped && (s.completed < how || len(s.pending) != 0) {
		s.finishes.Wait()
	}
}

// Stop the current Scheduler. Any job that tries to be scheduled
// after this will fail. Calling Stop more than once is a no-op.
func (s *fifo) Stop() {
	s.mutex.Lock()
	if s.stopped {
		s.mutex.Unlock()
		<-s.close
		return
	}
	s.stopped = true
	s.cancellable()
	s.finishes.Broadcast()
	s.mutex.Unlock()
	<-s.close
}

// Keeps polling the scheduled jobs for execution until stopped.
func (s *fifo) forever() {
	defer close(s.close)

	for {
		var job Job
		s.mutex.Lock()
		if len(s.pending) != 0 {
			job = s.pending[0]
		}
		s.mutex.Unlock()

		if job == nil {
			select {
			case <-s.ch:
			case <-s.ctx.Done():
				s.drain()
				return
			}
			continue
		}

		job(s.ctx)
		s.mutex.Lock()
		s.completed++
		s.pending = s.pending[1:]
		s.finishes.Broadcast()
		s.mutex.Unlock()
	}
}

// Executes the jobs left behind after the scheduler stopped.
func (s *fifo) drain() {
	s.mutex.Lock()
	jobs := s.pending
	s.pending = nil
	s.mutex.Unlock()
	for _, job := range jobs {
		job(s.ctx)
	}
}
