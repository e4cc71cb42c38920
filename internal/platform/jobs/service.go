package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hrm-payroll/internal/platform/metrics"
)

const (
	JobOutboxRelay  = "outbox_relay"
	JobPayrollBatch = "payroll_batch"
)

type RunFunc func(context.Context) (any, error)

type Service struct {
	metrics   *metrics.Collector
	queue     chan job
	schedules []schedule
	wg        sync.WaitGroup
}

type job struct {
	Type string
	Run  RunFunc
}

type schedule struct {
	job      job
	interval time.Duration
}

func New(m *metrics.Collector) *Service {
	return &Service{
		metrics: m,
		queue:   make(chan job, 128),
	}
}

// Every registers a job that is queued once per interval after Start.
func (s *Service) Every(jobType string, interval time.Duration, run RunFunc) {
	if interval <= 0 {
		return
	}
	s.schedules = append(s.schedules, schedule{job: job{Type: jobType, Run: run}, interval: interval})
}

func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
	for _, sched := range s.schedules {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick(ctx, sched)
		}()
	}
}

// Wait blocks until every goroutine started by Start has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run RunFunc) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) tick(ctx context.Context, sched schedule) {
	ticker := time.NewTicker(sched.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sched.job.Type, sched.job.Run)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	start := time.Now()
	details, err := j.Run(ctx)
	if s.metrics != nil {
		s.metrics.RecordJob(j.Type, time.Since(start), err)
	}
	return details, err
}
