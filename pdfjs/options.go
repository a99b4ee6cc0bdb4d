package pdfjs

import "time"

// Default pdf.js build loaded into the browser tab.
const (
	DefaultLibraryURL = "https://cdn.jsdelivr.net/npm/pdfjs-dist@4.10.38/build/pdf.min.mjs"
	DefaultWorkerURL  = "https://cdn.jsdelivr.net/npm/pdfjs-dist@4.10.38/build/pdf.worker.min.mjs"
)

// engineConfig holds internal configuration for an Engine.
type engineConfig struct {
	chromePath   string
	timeout      time.Duration
	noSandbox    bool
	headless     string
	autoDownload bool
	libraryURL   string
	workerURL    string
}

func defaultConfig() engineConfig {
	return engineConfig{
		timeout:    30 * time.Second,
		headless:   "new",
		libraryURL: DefaultLibraryURL,
		workerURL:  DefaultWorkerURL,
	}
}

// Option configures an [Engine].
type Option func(*engineConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *engineConfig) {
		c.chromePath = path
	}
}

// WithTimeout sets the maximum duration of a single call into the browser,
// such as loading a document or fetching one page's operator list.
// Defaults to 30 seconds. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *engineConfig) {
		c.noSandbox = true
	}
}

// WithHeadless sets Chrome's --headless mode ("new" by default). An empty
// string shows the browser window.
func WithHeadless(mode string) Option {
	return func(c *engineConfig) {
		c.headless = mode
	}
}

// WithAutoDownload downloads a Chromium build when no executable is
// configured with [WithChromePath].
func WithAutoDownload() Option {
	return func(c *engineConfig) {
		c.autoDownload = true
	}
}

// WithLibraryURL sets the URL of the pdf.js ES module (pdf.mjs) to load.
func WithLibraryURL(url string) Option {
	return func(c *engineConfig) {
		c.libraryURL = url
	}
}

// WithWorkerURL sets the URL of the pdf.js worker module.
func WithWorkerURL(url string) Option {
	return func(c *engineConfig) {
		c.workerURL = url
	}
}
