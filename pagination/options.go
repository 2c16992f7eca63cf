package pagination

const (
	defaultSize    = 20
	defaultMaxSize = 100
)

// Options configures pagination normalization.
type Options struct {
	DefaultSize int
	MaxSize     int
}

// Option is a functional option for Normalize.
type Option func(*Options)

// WithDefaultSize sets the page size used when the request omits one.
func WithDefaultSize(size int) Option {
	return func(o *Options) {
		o.DefaultSize = size
	}
}

// WithMaxSize caps the page size a caller may request.
func WithMaxSize(maxSize int) Option {
	return func(o *Options) {
		o.MaxSize = maxSize
	}
}

func defaultOptions() Options {
	return Options{DefaultSize: defaultSize, MaxSize: defaultMaxSize}
}
