package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/centinela-io/centinela/config"
	"github.com/centinela-io/centinela/store"
)

// ScanRequest asks the worker to scan one competitor page. Unknown URLs
// are registered as monitored pages on first sight.
type ScanRequest struct {
	URL          string `json:"url"`
	CompetitorID string `json:"competitor_id"`
	Kind         string `json:"kind,omitempty"`
}

// StreamWorker consumes scan requests from a JetStream stream, runs each
// through the monitor pipeline and publishes the resulting change events.
type StreamWorker struct {
	js      jetstream.JetStream
	monitor *Monitor
	store   *store.Store
	cfg     config.NATSConfig
	logger  *slog.Logger

	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	processed atomic.Int64
	errors    atomic.Int64
}

// NewStreamWorker creates a worker over an established NATS connection.
func NewStreamWorker(conn *nats.Conn, m *Monitor, st *store.Store, cfg config.NATSConfig, logger *slog.Logger) (*StreamWorker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}
	return &StreamWorker{
		js:      js,
		monitor: m,
		store:   st,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Start provisions the stream and durable consumer and begins consuming
// in the background.
func (w *StreamWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("stream worker already running")
	}
	w.running = true
	w.mu.Unlock()

	_, err := w.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     w.cfg.Stream,
		Subjects: []string{w.cfg.ScanSubject, w.cfg.EventSubject},
	})
	if err != nil {
		w.setStopped()
		return fmt.Errorf("ensuring stream %s: %w", w.cfg.Stream, err)
	}

	consumer, err := w.js.CreateOrUpdateConsumer(ctx, w.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       w.cfg.Durable,
		FilterSubject: w.cfg.ScanSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		w.setStopped()
		return fmt.Errorf("ensuring consumer %s: %w", w.cfg.Durable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.consume(runCtx, consumer)
	}()

	w.logger.Info("stream worker started",
		"stream", w.cfg.Stream,
		"subject", w.cfg.ScanSubject,
		"durable", w.cfg.Durable)
	return nil
}

func (w *StreamWorker) consume(ctx context.Context, consumer jetstream.Consumer) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue // timeout, try again
		}

		for msg := range msgs.Messages() {
			select {
			case <-ctx.Done():
				_ = msg.Nak()
				for remaining := range msgs.Messages() {
					_ = remaining.Nak()
				}
				return
			default:
				w.handleMessage(ctx, msg)
			}
		}
	}
}

func (w *StreamWorker) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var req ScanRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		w.logger.Warn("failed to parse scan request", "error", err)
		w.errors.Add(1)
		// Malformed requests can never succeed; drop them.
		_ = msg.Ack()
		return
	}
	if req.URL == "" {
		w.logger.Warn("scan request without url")
		w.errors.Add(1)
		_ = msg.Ack()
		return
	}

	page, err := w.ensurePage(ctx, req)
	if err != nil {
		w.logger.Error("failed to register page", "url", req.URL, "error", err)
		w.errors.Add(1)
		_ = msg.Nak()
		return
	}

	events, err := w.monitor.ProcessPage(ctx, page)
	if err != nil {
		w.logger.Warn("scan failed", "url", req.URL, "error", err)
		w.errors.Add(1)
		_ = msg.Nak()
		return
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			w.logger.Error("failed to marshal change event", "event_id", event.ID, "error", err)
			w.errors.Add(1)
			continue
		}
		if _, err := w.js.Publish(ctx, w.cfg.EventSubject, data); err != nil {
			w.logger.Error("failed to publish change event", "event_id", event.ID, "error", err)
			w.errors.Add(1)
		}
	}

	w.processed.Add(1)
	_ = msg.Ack()
	w.logger.Info("scan request processed", "url", req.URL, "events", len(events))
}

// ensurePage registers the request's URL when unseen and returns the
// stored page record. Known pages keep their registered kind.
func (w *StreamWorker) ensurePage(ctx context.Context, req ScanRequest) (store.Page, error) {
	page, err := w.store.PageByURL(ctx, req.URL)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.Page{}, err
	}

	kind := req.Kind
	if kind == "" {
		kind = "OTHER"
	}
	if err := w.store.UpsertPage(ctx, store.Page{
		ID:           uuid.NewString(),
		CompetitorID: req.CompetitorID,
		URL:          req.URL,
		Kind:         kind,
		Active:       true,
	}); err != nil {
		return store.Page{}, err
	}
	return w.store.PageByURL(ctx, req.URL)
}

// Stop drains the consume loop within the timeout.
func (w *StreamWorker) Stop(timeout time.Duration) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("stop timed out after %v", timeout)
	}

	w.setStopped()
	w.logger.Info("stream worker stopped",
		"processed", w.processed.Load(),
		"errors", w.errors.Load())
	return err
}

func (w *StreamWorker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}
