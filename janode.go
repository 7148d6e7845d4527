// Package janode multiplexes sessions, plugin handles and request/response
// transactions over a single persistent connection to a Janus WebRTC
// signalling server. Connect opens the Connection; Connection.CreateSession
// and Session.Attach build the Session/Handle tree that mirrors Janus's own
// session/handle hierarchy.
package janode

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/meetecho/janode-sub000/internal/errlib"
	"github.com/meetecho/janode-sub000/internal/log"
)

// Connect validates cfg, opens a Connection to one of its endpoints
// (retrying and failing over across the configured endpoint list) and
// returns it once the link is up.
func Connect(ctx context.Context, cfg Configuration) (*Connection, error) {
	return connect(ctx, []Configuration{cfg}, nil)
}

// ConnectMulti is Connect for a pool of Configurations: key selects which
// one to use. An int selects by index, a string matches
// Configuration.ServerKey, and nil selects index 0.
func ConnectMulti(ctx context.Context, configs []Configuration, key any) (*Connection, error) {
	return connect(ctx, configs, key)
}

func connect(ctx context.Context, configs []Configuration, key any) (*Connection, error) {
	cfg, err := selectConfiguration(configs, key)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := validateConfiguration(cfg); err != nil {
		return nil, err
	}

	logger, err := log.NewLogger("")
	if err != nil {
		return nil, err
	}

	conn := newConnection(cfg, clockwork.NewRealClock(), logger.Module("connection"))
	if err := conn.open(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

func selectConfiguration(configs []Configuration, key any) (Configuration, error) {
	if len(configs) == 0 {
		return Configuration{}, errlib.New(ErrConfigInvalid, "no configuration supplied")
	}
	if key == nil {
		return configs[0], nil
	}

	switch k := key.(type) {
	case int:
		if k < 0 || k >= len(configs) {
			return Configuration{}, errlib.Newf(ErrConfigInvalid, "configuration index %d out of range", k)
		}
		return configs[k], nil
	case string:
		for _, c := range configs {
			if c.ServerKey == k {
				return c, nil
			}
		}
		return Configuration{}, errlib.Newf(ErrConfigInvalid, "no configuration with server_key %q", k)
	default:
		return Configuration{}, errlib.Newf(ErrConfigInvalid, "unsupported key type %T", key)
	}
}
