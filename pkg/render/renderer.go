// Package render draws a positioned graph. Small graphs are kept as a scene
// of addressable elements and written as SVG; large graphs are redrawn in
// immediate mode onto a raster canvas and written as PNG.
package render

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
)

// Mode names a render strategy
type Mode string

const (
	ModeScene  Mode = "scene"
	ModeCanvas Mode = "canvas"
)

// ContentType is the media type a renderer in mode m writes
func (m Mode) ContentType() string {
	if m == ModeCanvas {
		return "image/png"
	}
	return "image/svg+xml"
}

// ErrUnsupportedFormat is returned for output formats other than svg and png
var ErrUnsupportedFormat = errors.New("unsupported render format")

// ParseFormat maps an output format to a mode: svg, png, or "" for auto
func ParseFormat(format string) (Mode, bool, error) {
	switch format {
	case "":
		return "", false, nil
	case "svg":
		return ModeScene, true, nil
	case "png":
		return ModeCanvas, true, nil
	}
	return "", false, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
}

// Renderer draws frames in two steps: Prepare captures the graph and must
// run under the host read lock, Write encodes the captured frame and must
// not.
type Renderer interface {
	Mode() Mode
	Prepare(g *graph.Graph, view View)
	Write(w io.Writer) error
}

// Option configures a renderer
type Option func(*options)

type options struct {
	logger  logging.Logger
	metrics *metrics.Registry
}

// WithLogger sets the renderer logger
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(o *options) { o.metrics = r }
}

func buildOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	o.logger = logging.OrNop(o.logger).With(logging.Component("render"))
	o.metrics = metrics.OrDefault(o.metrics)
	return o
}

// Select picks the mode for a graph of nodeCount nodes
func (c Config) Select(nodeCount int) Mode {
	if nodeCount <= c.SceneThreshold {
		return ModeScene
	}
	return ModeCanvas
}

// New returns the renderer for nodeCount nodes
func New(cfg Config, nodeCount int, opts ...Option) (Renderer, error) {
	return NewMode(cfg, cfg.Select(nodeCount), opts...)
}

// NewMode returns a renderer of the given mode
func NewMode(cfg Config, mode Mode, opts ...Option) (Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch mode {
	case ModeScene:
		return newSceneRenderer(cfg, buildOptions(opts)), nil
	case ModeCanvas:
		return newCanvasRenderer(cfg, buildOptions(opts)), nil
	}
	return nil, fmt.Errorf("unknown render mode %q", mode)
}

// Draw prepares and writes one frame. Only safe when nothing else mutates
// g, e.g. after the simulation has ended.
func Draw(r Renderer, w io.Writer, g *graph.Graph, view View) error {
	r.Prepare(g, view)
	return r.Write(w)
}

// frameStats is recorded per written frame
type frameStats struct {
	started  time.Time
	elements int
	culled   int
}
