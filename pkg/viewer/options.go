package viewer

import (
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
)

// Option configures a session or registry
type Option func(*options)

type options struct {
	logger     logging.Logger
	metrics    *metrics.Registry
	onRedraw   func()
	onNavigate func(url string)
	onDetails  func(nodeID string)
	onNotice   func(msg string)
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(o *options) { o.metrics = r }
}

// WithRedraw is called whenever the session needs a new frame: on every
// simulation tick, transition frame and interaction change.
func WithRedraw(fn func()) Option {
	return func(o *options) { o.onRedraw = fn }
}

// WithNavigate is called when a node with a URL is clicked
func WithNavigate(fn func(url string)) Option {
	return func(o *options) { o.onNavigate = fn }
}

// WithDetails is called by the "view details" menu entry
func WithDetails(fn func(nodeID string)) Option {
	return func(o *options) { o.onDetails = fn }
}

// WithNotice mirrors transient notices, e.g. to a status line
func WithNotice(fn func(msg string)) Option {
	return func(o *options) { o.onNotice = fn }
}

func buildOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	o.logger = logging.OrNop(o.logger)
	o.metrics = metrics.OrDefault(o.metrics)
	return o
}
