package messaging

import "time"

type NatsServerOpt func(*NatsServer)

// WithStartTimeout bounds how long Start waits for the server to accept
// connections.
func WithStartTimeout(d time.Duration) NatsServerOpt {
	return func(n *NatsServer) {
		n.startupTimeout = d
	}
}

func WithHost(host string) NatsServerOpt {
	return func(n *NatsServer) {
		n.host = host
	}
}

// WithPort sets the client port. Zero or less picks a free one.
func WithPort(port int) NatsServerOpt {
	return func(n *NatsServer) {
		if port <= 0 {
			port = -1
		}
		n.port = port
	}
}
