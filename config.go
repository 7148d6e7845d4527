package janode

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meetecho/janode-sub000/internal/errlib"
)

var validate = validator.New()

const (
	defaultRetryTimeSecs = 10
	defaultMaxRetries    = 5
	defaultKeepaliveSecs = 30
	defaultPingIntervalS = 10
	defaultPingWaitSecs  = 5
)

// Endpoint is one configured Janus server address. URL's scheme selects the
// Transport variant: ws/wss for the WebSocket transport, file for the UNIX
// datagram transport (file:///path/to/janus.sock). Immutable once built.
type Endpoint struct {
	URL       string `mapstructure:"url" validate:"required"`
	APISecret string `mapstructure:"apisecret"`
	Token     string `mapstructure:"token"`
}

// WSOptions tunes the WebSocket transport variant; all fields are optional
// and default to the values Janus itself documents.
type WSOptions struct {
	PingIntervalSecs int `mapstructure:"ping_interval_secs"`
	PingWaitSecs     int `mapstructure:"ping_wait_secs"`
}

// Configuration is the caller-supplied connection recipe for Connect.
// Validated eagerly: an invalid Configuration fails with ErrConfigInvalid
// before any network activity happens.
type Configuration struct {
	ServerKey     string     `mapstructure:"server_key"`
	Endpoints     []Endpoint `mapstructure:"endpoints" validate:"required,min=1,dive"`
	RetryTimeSecs int        `mapstructure:"retry_time_secs"`
	MaxRetries    int        `mapstructure:"max_retries"`
	IsAdmin       bool       `mapstructure:"is_admin"`
	KeepaliveSecs int        `mapstructure:"ka_interval_secs"`
	WSOptions     WSOptions  `mapstructure:"ws_options"`
}

// withDefaults returns a copy of cfg with zero-valued optional fields filled
// in from the documented defaults.
func (cfg Configuration) withDefaults() Configuration {
	if cfg.RetryTimeSecs <= 0 {
		cfg.RetryTimeSecs = defaultRetryTimeSecs
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.KeepaliveSecs <= 0 {
		cfg.KeepaliveSecs = defaultKeepaliveSecs
	}
	if cfg.WSOptions.PingIntervalSecs <= 0 {
		cfg.WSOptions.PingIntervalSecs = defaultPingIntervalS
	}
	if cfg.WSOptions.PingWaitSecs <= 0 {
		cfg.WSOptions.PingWaitSecs = defaultPingWaitSecs
	}
	return cfg
}

// validateConfiguration applies struct validation, then the endpoint
// presence/url rules every configured endpoint must satisfy.
func validateConfiguration(cfg Configuration) error {
	if err := validate.Struct(cfg); err != nil {
		return errlib.Wrap(ErrConfigInvalid, err, "invalid configuration")
	}
	for i, ep := range cfg.Endpoints {
		if ep.URL == "" {
			return errlib.Newf(ErrConfigInvalid, "endpoint %d missing url", i)
		}
	}
	return nil
}

func (cfg Configuration) retryInterval() time.Duration {
	return time.Duration(cfg.RetryTimeSecs) * time.Second
}

func (cfg Configuration) pingInterval() time.Duration {
	return time.Duration(cfg.WSOptions.PingIntervalSecs) * time.Second
}

func (cfg Configuration) pingWait() time.Duration {
	return time.Duration(cfg.WSOptions.PingWaitSecs) * time.Second
}

func (cfg Configuration) keepaliveInterval() time.Duration {
	return time.Duration(cfg.KeepaliveSecs) * time.Second
}
