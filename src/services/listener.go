package services

import (
	"context"
	"errors"

	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
)

// ErrQueueFull is returned when the live-message queue has no room; the
// caller should surface a retryable failure to the broadcaster.
var ErrQueueFull = errors.New("live message queue is full")

// Listener decouples the live-SMS broadcast from the pipeline: messages
// are queued on a buffered channel and drained by a single worker
// goroutine, so the pipeline itself stays free of ambient state.
type Listener struct {
	svc   SmsService
	queue chan models.SmsMessage
}

func NewListener(svc SmsService, queueSize int) *Listener {
	if queueSize < 1 {
		queueSize = 256
	}
	return &Listener{
		svc:   svc,
		queue: make(chan models.SmsMessage, queueSize),
	}
}

// Start launches the worker goroutine. It drains the queue until ctx is
// cancelled.
func (l *Listener) Start(ctx context.Context) {
	go func() {
		logger.L.Info("Live-SMS listener worker started", "queueSize", cap(l.queue))
		for {
			select {
			case <-ctx.Done():
				logger.L.Info("Live-SMS listener worker stopping")
				return
			case msg := <-l.queue:
				produced, err := l.svc.ProcessMessage(ctx, msg)
				if err != nil {
					logger.L.Error("Error processing live message", "sender", msg.Sender, "error", err)
					continue
				}
				logger.L.Debug("Live message processed", "sender", msg.Sender, "produced", produced)
			}
		}
	}()
}

// Enqueue hands one live message to the worker without blocking.
func (l *Listener) Enqueue(msg models.SmsMessage) error {
	select {
	case l.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}
