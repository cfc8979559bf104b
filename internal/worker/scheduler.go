package worker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spacefeed/internal/models"
	"spacefeed/internal/service"
)

const defaultStopTimeout = 10 * time.Second

type Worker interface {
	Source() models.Source
	Start()
	Stop()
	Done() <-chan struct{}
	Status() JobStatus
}

// Scheduler держит по одному воркеру на источник
type Scheduler struct {
	workers     map[models.Source]Worker
	order       []models.Source
	disabled    map[models.Source]bool
	stopTimeout time.Duration
	logger      *slog.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		workers:     make(map[models.Source]Worker),
		disabled:    make(map[models.Source]bool),
		stopTimeout: defaultStopTimeout,
		logger:      logger,
	}
}

// SetStopTimeout меняет время ожидания текущих циклов при остановке
func (s *Scheduler) SetStopTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimeout = d
}

// AddSource регистрирует загрузчик. Нулевой интервал отключает источник.
func (s *Scheduler) AddSource(fetcher service.Fetcher, interval, timeout time.Duration) error {
	source := fetcher.Source()
	if interval <= 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.workers[source]; exists || s.disabled[source] {
			return fmt.Errorf("source %s already registered", source)
		}
		s.disabled[source] = true
		s.order = append(s.order, source)
		s.logger.Info("source disabled", "source", source)
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return s.AddWorker(NewSourceWorker(fetcher, interval, timeout, s.logger))
}

func (s *Scheduler) AddWorker(worker Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := worker.Source()
	if _, exists := s.workers[source]; exists || s.disabled[source] {
		return fmt.Errorf("source %s already registered", source)
	}
	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}

	s.workers[source] = worker
	s.order = append(s.order, source)
	if s.started {
		worker.Start()
	}
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	s.logger.Info("starting scheduler", "workers", len(s.workers), "disabled", len(s.disabled))

	for _, source := range s.order {
		if w, ok := s.workers[source]; ok {
			w.Start()
		}
	}
}

// Stop останавливает все таймеры и ждёт текущие циклы не дольше stopTimeout
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	workers := make([]Worker, 0, len(s.workers))
	for _, source := range s.order {
		if w, ok := s.workers[source]; ok {
			workers = append(workers, w)
		}
	}
	timeout := s.stopTimeout
	s.mu.Unlock()

	s.logger.Info("stopping scheduler")

	for _, w := range workers {
		w.Stop()
	}

	done := make(chan struct{})
	go func() {
		for _, w := range workers {
			<-w.Done()
		}
		close(done)
	}()

	// Таймаут на остановку
	select {
	case <-done:
		s.logger.Info("scheduler stopped gracefully")
	case <-time.After(timeout):
		s.logger.Warn("scheduler stop timeout", "timeout", timeout.String())
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Status возвращает состояние всех источников в порядке регистрации
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.order))
	for _, source := range s.order {
		if w, ok := s.workers[source]; ok {
			out = append(out, w.Status())
			continue
		}
		out = append(out, JobStatus{Source: source, Enabled: false})
	}
	return out
}
