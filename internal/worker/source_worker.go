package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spacefeed/internal/models"
	"spacefeed/internal/service"
)

// JobStatus - состояние периодической загрузки одного источника
type JobStatus struct {
	Source              models.Source  `json:"source"`
	Enabled             bool           `json:"enabled"`
	IntervalSeconds     int64          `json:"interval_seconds"`
	InFlight            bool           `json:"in_flight"`
	LastRunAt           *time.Time     `json:"last_run_at,omitempty"`
	LastOutcome         models.Outcome `json:"last_outcome,omitempty"`
	LastError           string         `json:"last_error,omitempty"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	Runs                int64          `json:"runs"`
}

// SourceWorker опрашивает один источник по своему таймеру.
// Циклы одного источника выполняются последовательно.
type SourceWorker struct {
	fetcher  service.Fetcher
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	running bool
	status  JobStatus
}

func NewSourceWorker(fetcher service.Fetcher, interval, timeout time.Duration, logger *slog.Logger) *SourceWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceWorker{
		fetcher:  fetcher,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		status: JobStatus{
			Source:          fetcher.Source(),
			Enabled:         true,
			IntervalSeconds: int64(interval / time.Second),
		},
	}
}

func (w *SourceWorker) Source() models.Source {
	return w.fetcher.Source()
}

func (w *SourceWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	select {
	case <-w.stopChan:
		return
	default:
	}
	w.running = true

	w.logger.Info("worker started", "source", w.Source(), "interval", w.interval.String())
	go w.run()
}

// Stop останавливает таймер. Текущий цикл не прерывается, дождаться его можно через Done.
func (w *SourceWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		// run не запускался, закрывать done некому
		w.closeDone()
	}
}

// Done закрывается после выхода из рабочего цикла
func (w *SourceWorker) Done() <-chan struct{} {
	return w.done
}

func (w *SourceWorker) closeDone() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

func (w *SourceWorker) Status() JobStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := w.status
	if status.LastRunAt != nil {
		at := *status.LastRunAt
		status.LastRunAt = &at
	}
	return status
}

func (w *SourceWorker) run() {
	defer func() {
		w.mu.Lock()
		w.closeDone()
		w.mu.Unlock()
		w.logger.Info("worker stopped", "source", w.Source())
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Первый запуск сразу
	w.runCycle()

	for {
		select {
		case <-w.stopChan:
			return
		default:
		}

		select {
		case <-ticker.C:
			w.runCycle()
		case <-w.stopChan:
			return
		}
	}
}

func (w *SourceWorker) runCycle() {
	w.mu.Lock()
	w.status.InFlight = true
	w.mu.Unlock()

	// Цикл живёт на своём контексте и не прерывается остановкой
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	outcome, err := w.fetch(ctx)
	w.record(outcome, err)
}

// fetch превращает панику загрузчика в обычную ошибку цикла
func (w *SourceWorker) fetch(ctx context.Context) (outcome models.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("fetch cycle panicked", "source", w.Source(), "panic", fmt.Sprint(r))
			outcome = models.OutcomeFailed
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.fetcher.Fetch(ctx)
}

func (w *SourceWorker) record(outcome models.Outcome, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	w.status.InFlight = false
	w.status.LastRunAt = &now
	w.status.LastOutcome = outcome
	w.status.Runs++

	switch outcome {
	case models.OutcomeFailed:
		w.status.ConsecutiveFailures++
		if err != nil {
			w.status.LastError = err.Error()
		}
	default:
		w.status.ConsecutiveFailures = 0
		w.status.LastError = ""
	}
}
