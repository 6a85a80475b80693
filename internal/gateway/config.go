package gateway

import "time"

// Config is the gateway.http module section.
type Config struct {
	Bind string     `yaml:"bind"`
	Auth AuthConfig `yaml:"auth"`

	// InsecureNoAuth mounts the relay routes without authentication.
	InsecureNoAuth bool `yaml:"insecure_no_auth"`

	// APIMethods limits POST /api/{method}. Empty allows any method.
	APIMethods []string `yaml:"api_methods"`

	// RateLimit is the number of relay requests a client may make per
	// minute. Zero disables limiting.
	RateLimit int `yaml:"rate_limit"`

	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 10
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		// Long enough for a synchronous Bot API call.
		c.WriteTimeout = 75 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// AuthConfig configures relay authentication. Bearer and basic may both
// be set; either one is then accepted.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured reports whether any method is set.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
