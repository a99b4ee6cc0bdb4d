package pdfextract

import (
	"log/slog"
	"runtime"
)

// config holds internal configuration for an Extractor.
type config struct {
	imageOps       OpSet
	skipUnresolved bool
	concurrency    int
	logger         *slog.Logger
}

func defaultConfig() config {
	return config{
		imageOps:    ImageOps(),
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures an [Extractor].
type Option func(*config)

// WithImageOps replaces the set of operations treated as image paints.
// Defaults to [ImageOps].
func WithImageOps(ops ...OpCode) Option {
	return func(c *config) {
		c.imageOps = append(OpSet(nil), ops...)
	}
}

// WithSkipUnresolved makes image extraction skip images that cannot be
// resolved or whose pixel buffer is malformed, instead of failing the whole
// extraction. Page and operator-list failures still abort.
func WithSkipUnresolved() Option {
	return func(c *config) {
		c.skipUnresolved = true
	}
}

// WithConcurrency bounds the number of pages whose text is fetched at the
// same time. Values below 1 mean one page at a time. Defaults to
// GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithLogger installs a logger for debug events such as found and resolved
// images. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
