package scheduler

import (
	"context"
	"time"

	"github.com/agrosense/agrosense-api/internal/pkg/infrastructure/logging"
	"github.com/go-co-op/gocron"
)

//Task is a unit of periodic work. The context is cancelled when the run exceeds its timeout.
type Task func(ctx context.Context) error

//Scheduler runs tasks at a fixed interval, never overlapping two runs of the same task
type Scheduler struct {
	impl     *gocron.Scheduler
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger
}

//New creates a scheduler that runs every interval and gives each run at most timeout to finish
func New(interval, timeout time.Duration, log logging.Logger) *Scheduler {
	return &Scheduler{
		impl:     gocron.NewScheduler(time.UTC),
		interval: interval,
		timeout:  timeout,
		log:      log,
	}
}

//Schedule registers task under name. Tasks start running once Start is called.
func (s *Scheduler) Schedule(name string, task Task) error {
	_, err := s.impl.Every(s.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		started := time.Now()
		s.log.Debugf("scheduler: running %s", name)

		if err := task(ctx); err != nil {
			s.log.Errorf("scheduler: %s failed: %s", name, err.Error())
			return
		}

		s.log.Infof("scheduler: %s completed in %s", name, time.Since(started))
	})

	return err
}

//Start begins running scheduled tasks in the background
func (s *Scheduler) Start() {
	s.impl.StartAsync()
}

//Stop stops the scheduler and cancels any future runs
func (s *Scheduler) Stop() {
	if s.impl != nil {
		s.impl.Stop()
	}
}
