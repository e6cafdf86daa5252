package lock

// Config configures a Manager. The zero Config is usable.
type Config struct {
	// Origin names the origin the manager serves. Used in logs and metrics.
	Origin string

	// StrictSharedModes forbids read-only and readwrite-unsafe access handles
	// on the same file at the same time.
	StrictSharedModes bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Origin: "default",
	}
}

func (c Config) policy() Policy {
	return Policy{StrictSharedModes: c.StrictSharedModes}
}
