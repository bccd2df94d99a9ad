package telemetry

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	requestTimeout = 5 * time.Second
	queueSize      = 256
)

type event struct {
	Name       string         `json:"event"`
	Properties map[string]any `json:"properties"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Client posts checkout events to the analytics endpoint. Tracking is
// fire-and-forget: events are queued and dispatched by a background worker,
// and a full queue or a failed delivery drops the event rather than slowing
// a payment operation.
type Client struct {
	rest     *resty.Client
	endpoint string
	logger   *zap.Logger

	events chan event
	done   chan struct{}
}

// NewClient creates a telemetry client and starts its dispatch worker.
func NewClient(endpoint, writeKey string, logger *zap.Logger) *Client {
	rest := resty.New().SetTimeout(requestTimeout)
	if writeKey != "" {
		rest.SetHeader("Authorization", "Bearer "+writeKey)
	}

	c := &Client{
		rest:     rest,
		endpoint: endpoint,
		logger:   logger,
		events:   make(chan event, queueSize),
		done:     make(chan struct{}),
	}
	go c.dispatch()
	return c
}

// Track queues an event for delivery. Never blocks.
func (c *Client) Track(name string, payload map[string]any) {
	ev := event{Name: name, Properties: payload, Timestamp: time.Now()}
	select {
	case c.events <- ev:
	default:
		c.logger.Debug("Telemetry queue full, dropping event", zap.String("event", name))
	}
}

// Close stops accepting events and waits for queued ones to drain.
func (c *Client) Close() {
	close(c.events)
	<-c.done
}

func (c *Client) dispatch() {
	defer close(c.done)
	for ev := range c.events {
		resp, err := c.rest.R().SetBody(ev).Post(c.endpoint)
		if err != nil {
			c.logger.Debug("Telemetry delivery failed",
				zap.String("event", ev.Name),
				zap.Error(err))
			continue
		}
		if resp.IsError() {
			c.logger.Debug("Telemetry endpoint rejected event",
				zap.String("event", ev.Name),
				zap.Int("status", resp.StatusCode()))
		}
	}
}
