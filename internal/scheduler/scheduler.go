package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/flight-delays/internal/delays"
)

// DefaultInterval is how often scheduled fetches run when nothing else is configured.
const DefaultInterval = 30 * time.Minute

// Fetcher is the pipeline entry point the scheduler triggers.
type Fetcher interface {
	FetchAndStore(ctx context.Context, params delays.FetchParams) (delays.FetchResult, error)
}

// Job is one preconfigured pipeline invocation.
type Job struct {
	Params delays.FetchParams
}

// DefaultJobs are the departures and arrivals fetches with the given threshold.
func DefaultJobs(minDelay int) []Job {
	return []Job{
		{Params: delays.FetchParams{Direction: delays.DirectionDepartures, MinDelay: minDelay}},
		{Params: delays.FetchParams{Direction: delays.DirectionArrivals, MinDelay: minDelay}},
	}
}

// Options configures a Scheduler.
type Options struct {
	Interval   time.Duration
	Cron       string // overrides Interval when set
	RunOnStart bool
	JobTimeout time.Duration
}

// Scheduler periodically runs the fetch pipeline for each configured job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	jobs      []Job
	opts      Options
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(jobs []Job, opts Options, fetcher Fetcher) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = opts.Interval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		fetcher:   fetcher,
		jobs:      jobs,
		opts:      opts,
		logger:    slog.Default().With("component", "scheduler"),
	}
}

// Start schedules every job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.jobs) == 0 {
		s.logger.Info("no jobs configured; nothing to schedule")
		return nil
	}

	for _, job := range s.jobs {
		job := job

		var sched *gocron.Scheduler
		if s.opts.Cron != "" {
			sched = s.scheduler.Cron(s.opts.Cron)
		} else {
			sched = s.scheduler.Every(s.opts.Interval)
		}
		if !s.opts.RunOnStart {
			sched = sched.WaitForSchedule()
		}

		if _, err := sched.Tag(jobTag(job)).Do(s.run, job); err != nil {
			return fmt.Errorf("schedule %s: %w", jobTag(job), err)
		}
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "jobs", len(s.jobs), "interval", s.opts.Interval, "cron", s.opts.Cron)
	return nil
}

// Stop stops the scheduler. gocron waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunNow triggers every job once, synchronously.
func (s *Scheduler) RunNow() {
	for _, job := range s.jobs {
		s.run(job)
	}
}

// run executes a single job. Errors and panics are logged, never propagated.
func (s *Scheduler) run(job Job) {
	log := s.logger.With("job", jobTag(job))
	defer func() {
		if r := recover(); r != nil {
			log.Error("fetch job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	log.Debug("running delay fetch job")
	res, err := s.fetcher.FetchAndStore(ctx, job.Params)
	if err != nil {
		log.Error("fetch job failed", "run_id", res.RunID, "error", err)
		return
	}
	log.Debug("completed delay fetch job", "run_id", res.RunID, "written", res.Written())
}

func jobTag(job Job) string {
	tag := fmt.Sprintf("%s/min%d", job.Params.Direction, job.Params.MinDelay)
	if job.Params.DepartureAirportCode != "" {
		tag += "/dep=" + job.Params.DepartureAirportCode
	}
	if job.Params.ArrivalAirportCode != "" {
		tag += "/arr=" + job.Params.ArrivalAirportCode
	}
	return tag
}
