// Package recorder persists exposure events into a storage backend
// without blocking the decision path. Log enqueues onto a bounded
// channel and returns; a background worker drains the channel into
// storage. When the buffer is full the event is dropped and accounted,
// never waited on: a slow disk must not slow a request.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"edgelab-hq/tessera/pkg/exposure"
	"edgelab-hq/tessera/pkg/telemetry/metrics"
)

var (
	errBufferFull = errors.New("exposure buffer full")
	errClosed     = errors.New("sink closed")
)

// Config contains configuration for the store sink.
type Config struct {
	// Buffer is the size of the async write channel.
	// Default: 1000
	Buffer int

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// Logger receives drop and write-failure logs.
	// Default: slog.Default()
	Logger *slog.Logger

	// Metrics receives queue-depth gauges. Optional.
	Metrics *metrics.Collector
}

// DefaultConfig returns the default store sink configuration.
func DefaultConfig() *Config {
	return &Config{
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// StoreSink is an exposure.Sink backed by an exposure.Storage. It owns
// the storage: Close drains the buffer, then closes the backend.
type StoreSink struct {
	storage exposure.Storage
	config  *Config
	events  chan *exposure.Record
	logger  *slog.Logger
	metrics *metrics.Collector

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewStoreSink creates a store sink over the given backend and starts
// its background writer.
func NewStoreSink(storage exposure.Storage, config *Config) *StoreSink {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &StoreSink{
		storage: storage,
		config:  config,
		events:  make(chan *exposure.Record, config.Buffer),
		logger:  logger.With("component", "exposure.recorder"),
		metrics: config.Metrics,
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.worker()

	s.logger.Info("exposure store sink initialized",
		"buffer", config.Buffer,
		"write_timeout", config.WriteTimeout,
	)

	return s
}

// Log enqueues one event for persistence. It never blocks: a full
// buffer drops the event and returns an error for the caller to log.
func (s *StoreSink) Log(ctx context.Context, event *exposure.Event) error {
	select {
	case <-s.done:
		return exposure.NewSinkError(event.ID, errClosed)
	default:
	}

	select {
	case s.events <- exposure.NewRecord(event):
		s.updateQueueDepth()
		return nil
	default:
		s.logger.Warn("exposure buffer full, dropping event",
			"event_id", event.ID,
			"experiment", event.Experiment,
			"capacity", s.config.Buffer,
		)
		return exposure.NewSinkError(event.ID, errBufferFull)
	}
}

// Close drains buffered events into storage, then closes the backend.
func (s *StoreSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("shutting down exposure store sink")
		close(s.done)
		s.wg.Wait()
		err = s.storage.Close()
		s.logger.Info("exposure store sink shut down")
	})
	return err
}

// worker drains the event channel into storage.
func (s *StoreSink) worker() {
	defer s.wg.Done()

	for {
		select {
		case record := <-s.events:
			s.write(record)
			s.updateQueueDepth()

		case <-s.done:
			// Drain what was accepted before shutdown.
			pending := len(s.events)
			if pending > 0 {
				s.logger.Info("draining exposure buffer before shutdown",
					"pending_count", pending,
				)
			}
			for {
				select {
				case record := <-s.events:
					s.write(record)
				default:
					s.updateQueueDepth()
					return
				}
			}
		}
	}
}

// write persists a single record, bounded by the write timeout.
func (s *StoreSink) write(record *exposure.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := s.storage.Store(ctx, record); err != nil {
		s.logger.Error("failed to store exposure record",
			"record_id", record.ID,
			"experiment", record.Experiment,
			"error", err,
		)
		return
	}

	if elapsed := time.Since(start); elapsed > s.config.WriteTimeout/2 {
		s.logger.Warn("slow exposure write",
			"record_id", record.ID,
			"duration_ms", elapsed.Milliseconds(),
			"threshold_ms", (s.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

func (s *StoreSink) updateQueueDepth() {
	if s.metrics != nil {
		s.metrics.SetExposureQueueDepth(len(s.events))
	}
}
