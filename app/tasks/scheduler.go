package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskTimeout = 30 * time.Minute

type Config struct {
	WorkerCount int
	MinInterval time.Duration
	MaxInterval time.Duration
}

type CycleStats struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Sources       int           `json:"sources"`
	FailedSources int           `json:"failed_sources"`
	Interrupted   bool          `json:"interrupted"`
	PollStats
}

type Status struct {
	Running     bool        `json:"running"`
	Cycles      int         `json:"cycles"`
	NextCycleAt *time.Time  `json:"next_cycle_at,omitempty"`
	LastCycle   *CycleStats `json:"last_cycle,omitempty"`
}

// Scheduler runs poll cycles over all enabled sources and sleeps a random
// interval between them. Tasks are executed by a fixed pool of workers; a
// cycle waits for all of its tasks, so a source is never polled twice at once.
type Scheduler struct {
	sources     SourceProvider
	poller      Poller
	gate        ItemProcessor
	images      ImageFinder
	feedRepo    database.FeedRepository
	itemRepo    database.ItemRepository
	minInterval time.Duration
	maxInterval time.Duration
	workerCount int
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu     sync.RWMutex
	status Status
}

func NewScheduler(sources SourceProvider, poller Poller, gate ItemProcessor, images ImageFinder,
	feedRepo database.FeedRepository, itemRepo database.ItemRepository, config Config, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sources:     sources,
		poller:      poller,
		gate:        gate,
		images:      images,
		feedRepo:    feedRepo,
		itemRepo:    itemRepo,
		minInterval: config.MinInterval,
		maxInterval: config.MaxInterval,
		workerCount: max(1, config.WorkerCount),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	s.startWorkers()

	s.mu.Lock()
	s.status.Running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.syncAll(s.ctx)

		for {
			s.RunCycle(s.ctx)

			sleep := s.nextInterval()
			next := time.Now().Add(sleep)
			s.mu.Lock()
			s.status.NextCycleAt = &next
			s.mu.Unlock()

			s.logger.Info("Sleeping until next cycle", "duration", sleep.String(), "next_cycle_at", next.Format(time.RFC3339))

			timer := time.NewTimer(sleep)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.status.Running = false
	s.status.NextCycleAt = nil
	s.mu.Unlock()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// SyncSources registers every configured source, enabled or not.
func (s *Scheduler) SyncSources() {
	for _, source := range s.sources.GetSources() {
		if err := s.EnqueueTask(NewSyncSourceTask(source, s.feedRepo, s.logger)); err != nil {
			s.logger.Warn("Failed to enqueue SyncSourceTask", "source", source.Name, "error", err)
		}
	}
}

// syncAll registers the sources inline so the first cycle can record polls.
func (s *Scheduler) syncAll(ctx context.Context) {
	for _, source := range s.sources.GetSources() {
		task := NewSyncSourceTask(source, s.feedRepo, s.logger)
		task.Start()
		if err := task.Execute(ctx); err != nil {
			s.logger.Warn("Failed to sync source", "source", source.Name, "error", err)
		}
	}
}

func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	if s.status.LastCycle != nil {
		last := *s.status.LastCycle
		status.LastCycle = &last
	}
	return status
}

// RunCycle polls every enabled source once and waits for all of them. The
// stored links are snapshotted before any write of the cycle and shared by
// all sources, so a link carried by two sources is only enriched once.
func (s *Scheduler) RunCycle(ctx context.Context) CycleStats {
	stats := CycleStats{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := s.logger.With("cycle_id", stats.ID)

	existing, err := s.itemRepo.ExistingLinks(ctx)
	if err != nil {
		logger.Error("Failed to load stored links, skipping cycle", "error", err)
		stats.Interrupted = true
		s.finishCycle(stats)
		return stats
	}
	links := feed.NewLinkSet(existing)

	sources := s.sources.GetEnabledSources()
	stats.Sources = len(sources)
	logger.Info("Cycle started", "sources", len(sources), "known_links", links.Len())

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tasks  []*PollSourceTask
		failed int
	)

	for _, source := range sources {
		task := NewPollSourceTask(source, links, s.poller, s.gate, s.images, s.feedRepo, s.itemRepo, s.logger)

		wg.Add(1)
		tracked := &cycleTask{TaskInterface: task, done: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			tasks = append(tasks, task)
			if err != nil {
				failed++
			}
			wg.Done()
		}}

		if ctx.Err() != nil {
			wg.Done()
			continue
		}
		select {
		case s.taskQueue <- tracked:
		case <-ctx.Done():
			wg.Done()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	// Only finished tasks are counted when the cycle is interrupted.
	mu.Lock()
	for _, task := range tasks {
		stats.add(task.Stats)
	}
	stats.FailedSources = failed
	mu.Unlock()

	stats.Interrupted = ctx.Err() != nil
	stats.Duration = time.Since(stats.StartedAt)

	logger.Info("Cycle completed",
		"duration", stats.Duration,
		"sources", stats.Sources,
		"failed_sources", stats.FailedSources,
		"fetched", stats.Fetched,
		"new", stats.New,
		"relevant", stats.Relevant,
		"stored", stats.Stored,
		"interrupted", stats.Interrupted)

	s.finishCycle(stats)
	return stats
}

func (s *Scheduler) finishCycle(stats CycleStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Cycles++
	s.status.LastCycle = &stats
}

// nextInterval picks a uniformly random sleep in [minInterval, maxInterval].
func (s *Scheduler) nextInterval() time.Duration {
	if s.maxInterval <= s.minInterval {
		return s.minInterval
	}
	return s.minInterval + time.Duration(rand.Int63n(int64(s.maxInterval-s.minInterval+1)))
}

func (s *Scheduler) startWorkers() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			s.drain()
			return
		}
	}
}

// drain releases cycle tasks that will never run so a waiting cycle can
// finish during shutdown.
func (s *Scheduler) drain() {
	for {
		select {
		case task := <-s.taskQueue:
			if tracked, ok := task.(*cycleTask); ok {
				tracked.done(s.ctx.Err())
			}
		default:
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err != nil {
		s.logger.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"source", task.GetSourceName(),
			"error", err)
	}
}

// cycleTask reports completion of a poll back to the cycle that queued it.
type cycleTask struct {
	TaskInterface
	done func(err error)
}

func (t *cycleTask) Execute(ctx context.Context) error {
	err := t.TaskInterface.Execute(ctx)
	t.done(err)
	return err
}
