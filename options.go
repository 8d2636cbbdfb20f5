package vemos

import (
	"log/slog"

	"github.com/hupe1980/vemos/blobstore"
	"github.com/hupe1980/vemos/classifier"
	"github.com/hupe1980/vemos/generate"
	"github.com/hupe1980/vemos/resource"
	"github.com/hupe1980/vemos/session"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
	repository       session.Repository
	output           blobstore.BlobStore
	sampleCacheSize  int
	classifierOpts   []classifier.Option
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. Default: NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel installs a text logger to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets the metrics collector. Default: NoopMetricsCollector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController limits sample memory, parallel matrix parsing and
// file read bandwidth. Without a controller matrices are parsed one at a
// time and reads are not limited.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithRepository sets the session repository used by SaveSession,
// LoadSession, ListSessions and DeleteSession.
func WithRepository(repo session.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithMatrixOutput writes every generated or fused matrix to store as
// "<name>.txt" in dense text format.
func WithMatrixOutput(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.output = store
	}
}

// WithSampleCacheSize sets the number of decoded samples kept between
// comparisons during generation. Default: generate.DefaultCacheSize.
func WithSampleCacheSize(n int) Option {
	return func(o *options) {
		o.sampleCacheSize = n
	}
}

// WithClassifierOptions tunes the classifier trained by Fuse.
func WithClassifierOptions(opts ...classifier.Option) Option {
	return func(o *options) {
		o.classifierOpts = append(o.classifierOpts, opts...)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		sampleCacheSize:  generate.DefaultCacheSize,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
