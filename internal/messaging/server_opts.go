package messaging

import "time"

type NatsServerOpt func(*NatsServer)

// WithStartTimeout bounds how long Start waits for the server to accept
// clients.
func WithStartTimeout(d time.Duration) NatsServerOpt {
	return func(n *NatsServer) { n.startupTimeout = d }
}

// WithHost binds the server to host instead of loopback.
func WithHost(host string) NatsServerOpt {
	return func(n *NatsServer) { n.options.Host = host }
}

// WithPort binds the server to port. -1 picks a free port.
func WithPort(port int) NatsServerOpt {
	return func(n *NatsServer) { n.options.Port = port }
}

// WithClientName names the storyteller's own connection as seen by
// monitoring tools.
func WithClientName(name string) NatsServerOpt {
	return func(n *NatsServer) { n.clientName = name }
}
