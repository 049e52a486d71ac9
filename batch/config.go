package batch

// Config tunes batch execution.
type Config struct {
	// MaxParallel caps how many handles one stage drives at once.
	// Zero leaves the multiplexer's own limit in place.
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel" validate:"gte=0"`
}
