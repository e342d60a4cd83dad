package cache

// Config holds configuration for the shared cache.
type Config struct {
	// Host is the Redis host. An empty host selects the in-process cache.
	Host string `mapstructure:"host" default:""`
	// Port is the Redis port.
	Port int `mapstructure:"port" default:"6379"`
	// Password is the Redis password.
	Password string `mapstructure:"password" default:""`
	// DB is the Redis logical database.
	DB int `mapstructure:"db" default:"0"`
	// TTLSeconds is the expiry of published keys; 0 keeps them forever.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"0"`
	// TimeoutSeconds bounds dialing and each command.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"5"`
}
