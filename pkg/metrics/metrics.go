/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/uber-go/tally/v4"
	promreporter "github.com/uber-go/tally/v4/prometheus"
)

var logger = logging.NewLogger("arcgateway")

const reportInterval = time.Second

var reg = regexp.MustCompile("[^a-zA-Z0-9_]+")

// FilterMetricName replaces every character prometheus does not accept in a name
func FilterMetricName(name string) string {
	return reg.ReplaceAllString(name, "_")
}

// Provider owns the root metrics scope of the gateway
type Provider struct {
	scope   tally.Scope
	closer  io.Closer
	handler http.Handler

	mutex     sync.Mutex
	endpoints map[string]*Endpoint
}

// New creates the root scope. When metrics are enabled the scope reports to a
// prometheus registry exposed by HTTPHandler, otherwise it is a no-op scope.
func New(config api.Config) *Provider {
	if !config.IsMetricsEnabled() {
		logger.Infof("Metrics are disabled")
		return NewWithScope(tally.NoopScope, nil)
	}

	registry := prometheus.NewRegistry()
	reporter := promreporter.NewReporter(promreporter.Options{Registerer: registry})

	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:         FilterMetricName(config.GetMetricsPrefix()),
		CachedReporter: reporter,
		Separator:      promreporter.DefaultSeparator,
	}, reportInterval)

	p := NewWithScope(scope, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	p.closer = closer

	logger.Infof("Metrics are enabled with prefix [%s]", config.GetMetricsPrefix())
	return p
}

// NewWithScope returns a provider for the given scope
func NewWithScope(scope tally.Scope, handler http.Handler) *Provider {
	return &Provider{
		scope:     scope,
		handler:   handler,
		endpoints: make(map[string]*Endpoint),
	}
}

// Scope returns the root scope
func (p *Provider) Scope() tally.Scope {
	return p.scope
}

// HTTPHandler serves the prometheus exposition, or nil when metrics are disabled
func (p *Provider) HTTPHandler() http.Handler {
	return p.handler
}

// Close flushes and stops reporting
func (p *Provider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Endpoint returns the metrics of the named HTTP endpoint
func (p *Provider) Endpoint(name string) *Endpoint {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if e, ok := p.endpoints[name]; ok {
		return e
	}

	scope := p.scope.Tagged(map[string]string{"endpoint": name})
	e := &Endpoint{
		requests: scope.Counter("requests"),
		failures: scope.Counter("failures"),
		duration: scope.Timer("duration"),
	}
	p.endpoints[name] = e
	return e
}

// Endpoint counts the requests of one endpoint
type Endpoint struct {
	requests tally.Counter
	failures tally.Counter
	duration tally.Timer
}

// Start counts a request and returns a func that records its outcome
func (e *Endpoint) Start() func(failed bool) {
	e.requests.Inc(1)
	sw := e.duration.Start()
	return func(failed bool) {
		sw.Stop()
		if failed {
			e.failures.Inc(1)
		}
	}
}
