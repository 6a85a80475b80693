package telegram

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	tg "github.com/flemzord/tgclaw/pkg/telegram"
)

// tokenPattern matches <bot id>:<secret>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Config is the telegram module section.
type Config struct {
	Token       string `yaml:"token"`
	BotUsername string `yaml:"bot_username"`

	// Chats maps aliases to chat IDs (numbers or "@channel" names).
	Chats map[string]any `yaml:"chats"`

	// Methods are allow-listed on top of sendMessage, getUpdates and getMe.
	Methods []string `yaml:"methods"`

	Async         bool          `yaml:"async"`
	APIURL        string        `yaml:"api_url"`
	Timeout       time.Duration `yaml:"timeout"`
	AsyncTimeout  time.Duration `yaml:"async_timeout"`
	VerifyOnStart bool          `yaml:"verify_on_start"`
}

func (c *Config) defaults() {
	if c.APIURL == "" {
		c.APIURL = tg.DefaultEndpoint
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.AsyncTimeout == 0 {
		c.AsyncTimeout = time.Second
	}
}

func (c *Config) validate() error {
	var errs []error

	switch {
	case c.Token == "":
		errs = append(errs, errors.New("telegram: token is required"))
	case !tokenPattern.MatchString(c.Token):
		errs = append(errs, errors.New("telegram: token format invalid (expected <bot_id>:<secret>)"))
	}

	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("telegram: api_url must be a valid http/https URL, got %q", c.APIURL))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("telegram: timeout must not be negative, got %s", c.Timeout))
	}
	if c.AsyncTimeout < 0 {
		errs = append(errs, fmt.Errorf("telegram: async_timeout must not be negative, got %s", c.AsyncTimeout))
	}
	for alias, id := range c.Chats {
		switch id.(type) {
		case int, int64, uint64, string:
		default:
			errs = append(errs, fmt.Errorf("telegram: chats.%s must be a number or a string, got %T", alias, id))
		}
	}

	return errors.Join(errs...)
}
