package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultProbeTimeout = 3 * time.Second
	defaultCacheTTL     = 5 * time.Second
)

// Probe answers reachability by issuing a HEAD request against a known
// endpoint. Results are cached briefly so back-to-back checks during one
// interaction do not multiply probe traffic. Any HTTP response, including an
// error status, counts as reachable; only a transport failure means offline.
type Probe struct {
	url    string
	client *http.Client
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.Mutex
	checkedAt time.Time
	online    bool
}

// NewProbe creates a probe against the given URL. A non-positive ttl uses
// the default cache window.
func NewProbe(url string, ttl time.Duration, logger *zap.Logger) *Probe {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Probe{
		url:    url,
		client: &http.Client{Timeout: defaultProbeTimeout},
		ttl:    ttl,
		logger: logger,
	}
}

// Online reports whether the network is reachable right now.
func (p *Probe) Online(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.checkedAt) < p.ttl {
		return p.online
	}

	p.online = p.check(ctx)
	p.checkedAt = time.Now()
	return p.online
}

func (p *Probe) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.logger.Warn("Connectivity probe request could not be built", zap.Error(err))
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("Connectivity probe failed", zap.String("url", p.url), zap.Error(err))
		return false
	}
	resp.Body.Close()
	return true
}
