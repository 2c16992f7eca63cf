package cfgloader

// Options holds configuration options for Load and MustLoad.
type Options struct {
	// Path overrides the config file location. When empty, the loader falls
	// back to CONFIG_PATH and then to ./config/${ENVIRONMENT}.yaml.
	Path string
}

// Option is a functional option for configuring loader behavior.
type Option func(*Options)

// WithPath sets an explicit config file path.
func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}

func defaultOptions() Options {
	return Options{}
}
