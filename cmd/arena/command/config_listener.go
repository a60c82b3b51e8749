package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/listener"
	"github.com/pixil98/go-arena/internal/metrics"
	"github.com/pixil98/go-arena/internal/player"
	"github.com/pixil98/go-errors"
)

type ListenerConfig struct {
	Address           string `json:"address"`
	Port              uint16 `json:"port"`
	KeepaliveInterval string `json:"keepalive_interval"`
	DeadPeerTimeout   string `json:"dead_peer_timeout"`
	AuthTimeout       string `json:"auth_timeout"`
	RateLimit         string `json:"rate_limit"`
	SendBuffer        int    `json:"send_buffer"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Port == 0 {
		el.Add(fmt.Errorf("listener: port must be set to a positive integer"))
	}
	if cl.SendBuffer < 0 {
		el.Add(fmt.Errorf("listener: send_buffer cannot be negative"))
	}

	keepalive, err := parseDuration("keepalive_interval", cl.KeepaliveInterval, listener.DefaultKeepaliveInterval)
	el.Add(err)
	deadPeer, err2 := parseDuration("dead_peer_timeout", cl.DeadPeerTimeout, listener.DefaultDeadPeerTimeout)
	el.Add(err2)
	if err == nil && err2 == nil && deadPeer <= keepalive {
		el.Add(fmt.Errorf("listener: dead_peer_timeout must be longer than keepalive_interval"))
	}

	_, err = parseDuration("auth_timeout", cl.AuthTimeout, player.DefaultAuthTimeout)
	el.Add(err)
	_, err = parseDuration("rate_limit", cl.RateLimit, game.DefaultUpdateInterval)
	el.Add(err)

	return el.Err()
}

func (cl *ListenerConfig) authTimeout() time.Duration {
	d, _ := parseDuration("auth_timeout", cl.AuthTimeout, player.DefaultAuthTimeout)
	return d
}

func (cl *ListenerConfig) updateInterval() time.Duration {
	d, _ := parseDuration("rate_limit", cl.RateLimit, game.DefaultUpdateInterval)
	return d
}

func (cl *ListenerConfig) buildListener(cm *listener.ConnectionManager, ready <-chan struct{}, reg *metrics.Registry) *listener.WebsocketListener {
	keepalive, _ := parseDuration("keepalive_interval", cl.KeepaliveInterval, listener.DefaultKeepaliveInterval)
	deadPeer, _ := parseDuration("dead_peer_timeout", cl.DeadPeerTimeout, listener.DefaultDeadPeerTimeout)

	opts := []listener.WebsocketListenerOpt{
		listener.WithAddress(cl.Address),
		listener.WithReady(ready),
		listener.WithKeepalive(keepalive, deadPeer),
		listener.WithMetrics(reg),
	}
	if cl.SendBuffer > 0 {
		opts = append(opts, listener.WithSendBuffer(cl.SendBuffer))
	}

	return listener.NewWebsocketListener(cl.Port, cm, opts...)
}
