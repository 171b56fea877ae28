package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Runner executes one compositing job from source to finished output. The
// cancelled callback is polled at frame boundaries; progress reports
// fractional completion and the estimated media time remaining.
type Runner interface {
	Run(ctx context.Context, req ComposeRequest, outputPath string, cancelled func() bool, progress func(fraction, etaSeconds float64)) (*Result, error)
}

// Publisher uploads a finished output and returns its public URL.
type Publisher interface {
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}

// Listener receives job lifecycle callbacks. All callbacks are delivered from
// a single dispatcher goroutine, so implementations never see two callbacks
// concurrently. Exactly one terminal callback fires per job.
type Listener interface {
	// OnProgress reports fractional completion. Delivery is best-effort:
	// reports are dropped rather than queued when the listener lags.
	OnProgress(jobID string, fraction, etaSeconds float64)
	// OnCompleted fires once when the output is finalized.
	OnCompleted(jobID string, result *Result)
	// OnFailed fires once with the coarse error kind and a message.
	OnFailed(jobID string, kind ErrorKind, message string)
	// OnCancelled fires once when a cancellation request took effect.
	OnCancelled(jobID string)
}

// NopListener is a Listener that ignores all callbacks.
type NopListener struct{}

func (NopListener) OnProgress(string, float64, float64) {}
func (NopListener) OnCompleted(string, *Result)         {}
func (NopListener) OnFailed(string, ErrorKind, string)  {}
func (NopListener) OnCancelled(string)                  {}

type eventType int

const (
	eventProgress eventType = iota
	eventCompleted
	eventFailed
	eventCancelled
)

type event struct {
	typ      eventType
	jobID    string
	fraction float64
	eta      float64
	result   *Result
	kind     ErrorKind
	message  string
}

// Service supervises compositing jobs: it accepts requests, runs each on its
// own worker goroutine, tracks live jobs for status queries and cancellation,
// and dispatches lifecycle callbacks. The repository keeps terminal snapshots
// so finished jobs remain queryable.
type Service struct {
	repo      Repository
	runner    Runner
	publisher Publisher
	listener  Listener
	logger    *slog.Logger
	outputDir string

	mu      sync.Mutex
	running map[string]*Job

	events  chan event
	done    chan struct{}
	workers sync.WaitGroup
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Repo persists job snapshots. Required.
	Repo Repository
	// Runner executes jobs. Required.
	Runner Runner
	// Publisher uploads finished outputs when a request asks for it. Optional.
	Publisher Publisher
	// Listener receives lifecycle callbacks. Nil means NopListener.
	Listener Listener
	// Logger for supervision events. Nil means slog.Default.
	Logger *slog.Logger
	// OutputDir is where generated output paths land when a request does not
	// name one explicitly.
	OutputDir string
}

// NewService creates a Service and starts its callback dispatcher.
func NewService(cfg ServiceConfig) *Service {
	listener := cfg.Listener
	if listener == nil {
		listener = NopListener{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      cfg.Repo,
		runner:    cfg.Runner,
		publisher: cfg.Publisher,
		listener:  listener,
		logger:    logger,
		outputDir: cfg.OutputDir,
		running:   make(map[string]*Job),
		events:    make(chan event, 64),
		done:      make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// dispatch delivers callbacks one at a time, in order, from a single
// goroutine.
func (s *Service) dispatch() {
	defer close(s.done)
	for ev := range s.events {
		switch ev.typ {
		case eventProgress:
			s.listener.OnProgress(ev.jobID, ev.fraction, ev.eta)
		case eventCompleted:
			s.listener.OnCompleted(ev.jobID, ev.result)
		case eventFailed:
			s.listener.OnFailed(ev.jobID, ev.kind, ev.message)
		case eventCancelled:
			s.listener.OnCancelled(ev.jobID)
		}
	}
}

// Start validates the request, registers a new job, and launches its worker.
// The returned job snapshot is in QUEUED state; processing is asynchronous.
func (s *Service) Start(ctx context.Context, req ComposeRequest) (*Job, error) {
	if req.SourcePath == "" {
		return nil, ErrSourceRequired
	}
	req.Normalize()

	j := New(req)
	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(s.outputDir, j.ID+defaultExt(req.SourcePath))
	}
	j.SetOutputPath(outputPath)

	// A stale file at the output path must not survive a failed or cancelled
	// run and be mistaken for this job's output.
	if err := removeIfExists(outputPath); err != nil {
		return nil, fmt.Errorf("clearing output path: %w", err)
	}

	if err := s.repo.Save(ctx, j); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.running[j.ID] = j
	s.mu.Unlock()

	s.logger.Info("job accepted",
		slog.String("job_id", j.ID),
		slog.String("source", req.SourcePath),
		slog.String("output", outputPath),
	)

	s.workers.Add(1)
	// The worker outlives the request that started it.
	go s.run(context.WithoutCancel(ctx), j)

	return j.Clone(), nil
}

// run is the per-job worker. It owns all status transitions for its job.
func (s *Service) run(ctx context.Context, j *Job) {
	defer s.workers.Done()

	if j.CancelRequested() {
		s.finishCancelled(ctx, j)
		return
	}
	if err := j.Start(); err != nil {
		// Only possible if the job was already terminal, which run() precludes.
		s.logger.Error("job start transition failed",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	progress := func(fraction, etaSeconds float64) {
		j.UpdateProgress(fraction, etaSeconds)
		select {
		case s.events <- event{typ: eventProgress, jobID: j.ID, fraction: fraction, eta: etaSeconds}:
		default:
			// Progress is advisory; drop rather than stall the frame loop.
		}
	}

	result, err := s.runner.Run(ctx, j.Request, j.OutputPath, j.CancelRequested, progress)
	switch {
	case err != nil && KindOf(err) == KindCancelled:
		s.finishCancelled(ctx, j)
	case err != nil:
		s.finishFailed(ctx, j, err)
	default:
		s.finishCompleted(ctx, j, result)
	}
}

func (s *Service) finishCancelled(ctx context.Context, j *Job) {
	_ = removeIfExists(j.OutputPath)
	if err := j.Cancel(); err != nil {
		return
	}
	s.logger.Info("job cancelled", slog.String("job_id", j.ID))
	s.retire(ctx, j)
	s.events <- event{typ: eventCancelled, jobID: j.ID}
}

func (s *Service) finishFailed(ctx context.Context, j *Job, err error) {
	kind := KindOf(err)
	if txErr := j.Fail(kind, err.Error()); txErr != nil {
		return
	}
	s.logger.Error("job failed",
		slog.String("job_id", j.ID),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()),
	)
	s.retire(ctx, j)
	s.events <- event{typ: eventFailed, jobID: j.ID, kind: kind, message: err.Error()}
}

func (s *Service) finishCompleted(ctx context.Context, j *Job, result *Result) {
	result.JobID = j.ID
	if j.Request.PublishToS3 && s.publisher != nil {
		url, err := s.publish(ctx, result.OutputPath)
		if err != nil {
			s.finishFailed(ctx, j, NewError(KindInternal, "publishing output", err))
			return
		}
		result.URL = url
	}
	j.UpdateProgress(1, 0)
	if err := j.Complete(result); err != nil {
		return
	}
	s.logger.Info("job completed",
		slog.String("job_id", j.ID),
		slog.String("output", result.OutputPath),
	)
	s.retire(ctx, j)
	s.events <- event{typ: eventCompleted, jobID: j.ID, result: result}
}

func (s *Service) publish(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.publisher.UploadToS3(ctx, filepath.Base(path), f)
}

// retire saves the terminal snapshot and drops the job from the live set.
func (s *Service) retire(ctx context.Context, j *Job) {
	if err := s.repo.Save(ctx, j); err != nil {
		s.logger.Error("saving terminal job state",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
	s.mu.Lock()
	delete(s.running, j.ID)
	s.mu.Unlock()
}

// GetJob returns a snapshot of the job. Live jobs come from the running set
// (with up-to-date progress); finished jobs from the repository.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	j, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		return j.Clone(), nil
	}
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns snapshots of all known jobs.
func (s *Service) ListJobs(ctx context.Context) ([]*Job, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	// Repository snapshots of live jobs are stale; replace them.
	s.mu.Lock()
	for i, j := range jobs {
		if live, ok := s.running[j.ID]; ok {
			jobs[i] = live.Clone()
		}
	}
	s.mu.Unlock()
	return jobs, nil
}

// Cancel requests cancellation of a live job. The request is a flag flip
// only; the status changes when the worker observes it at the next frame
// boundary. Cancelling an already-terminal job is a no-op; an unknown job
// returns ErrJobNotFound.
func (s *Service) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	j, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		j.RequestCancel()
		s.logger.Info("cancellation requested", slog.String("job_id", id))
		return nil
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	// Already terminal; nothing to cancel.
	return nil
}

// Close waits for in-flight jobs to finish and stops the dispatcher. No
// callbacks are delivered after Close returns.
func (s *Service) Close() {
	s.workers.Wait()
	close(s.events)
	<-s.done
}

// defaultExt keeps still-image sources in their own format; everything else
// lands in an mp4 container.
func defaultExt(sourcePath string) string {
	switch ext := strings.ToLower(filepath.Ext(sourcePath)); ext {
	case ".png", ".jpg", ".jpeg":
		return ext
	case ".gif":
		return ".png"
	default:
		return ".mp4"
	}
}

func removeIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
