package command

import (
	"fmt"

	"github.com/pixil98/go-arena/internal/messaging"
	"github.com/pixil98/go-errors"
)

// NatsConfig configures the embedded message bus. A zero port picks a free
// one.
type NatsConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	_, err := parseDuration("start_timeout", n.StartTimeout, messaging.DefaultStartTimeout)
	el.Add(err)

	if n.Port < 0 || n.Port > 65535 {
		el.Add(fmt.Errorf("nats: port %d out of range", n.Port))
	}

	return el.Err()
}

func (n *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	timeout, err := parseDuration("start_timeout", n.StartTimeout, messaging.DefaultStartTimeout)
	if err != nil {
		return nil, err
	}

	opts := []messaging.NatsServerOpt{
		messaging.WithStartTimeout(timeout),
		messaging.WithPort(n.Port),
	}
	if n.Host != "" {
		opts = append(opts, messaging.WithHost(n.Host))
	}

	return messaging.NewNatsServer(opts...)
}
