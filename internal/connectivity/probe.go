package connectivity

import (
	"context"
	"net"
	"time"

	"github.com/jeevan-health/triage/pkg/schema"
)

// DefaultHost is resolved to decide whether the wider network is reachable.
const DefaultHost = "google.com"

// Resolver is the subset of *net.Resolver used by the probe.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Probe reports coarse reachability by resolving a well-known host within
// a bounded timeout. Any failure reads as Offline.
type Probe struct {
	host     string
	timeout  time.Duration
	resolver Resolver
}

// NewProbe creates a DNS probe. Empty host and non-positive timeout fall
// back to DefaultHost and 5s.
func NewProbe(host string, timeout time.Duration) *Probe {
	if host == "" {
		host = DefaultHost
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Probe{host: host, timeout: timeout, resolver: net.DefaultResolver}
}

// WithResolver swaps the resolver, for tests.
func (p *Probe) WithResolver(r Resolver) *Probe {
	p.resolver = r
	return p
}

// Status resolves the probe host.
func (p *Probe) Status(ctx context.Context) schema.ConnectivityStatus {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	addrs, err := p.resolver.LookupHost(ctx, p.host)
	if err != nil || len(addrs) == 0 {
		return schema.StatusOffline
	}
	return schema.StatusOnline
}
