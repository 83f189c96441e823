package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/crypto/ssh"
)

type SshListener struct {
	port   uint16
	cm     *ConnectionManager
	config *ssh.ServerConfig
}

// NewSshListener serves the table over ssh. Clients are not authenticated;
// the name they connect as is passed along and used to seat them.
func NewSshListener(port uint16, cm *ConnectionManager, hostKey ssh.Signer) *SshListener {
	config := &ssh.ServerConfig{NoClientAuth: true}
	config.AddHostKey(hostKey)
	return &SshListener{
		port:   port,
		cm:     cm,
		config: config,
	}
}

func (l *SshListener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", l.port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", l.port, err)
	}
	slog.InfoContext(ctx, "listening for ssh", "port", l.port)

	live := newSessions(l.cm)
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				live.drain()
				return nil
			}
			slog.ErrorContext(ctx, "accepting ssh connection", "error", err)
			continue
		}
		go l.handshake(live, conn)
	}
}

func (l *SshListener) handshake(live *sessions, conn net.Conn) {
	defer conn.Close()

	sc, chans, reqs, err := ssh.NewServerConn(conn, l.config)
	if err != nil {
		slog.Warn("ssh handshake", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	defer sc.Close()
	slog.Info("ssh connection established", "remote", conn.RemoteAddr(), "user", sc.User())

	stop := context.AfterFunc(live.ctx, func() { sc.Close() })
	defer stop()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			slog.Error("accepting ssh channel", "error", err)
			continue
		}
		l.serveChannel(live, sc.User(), ch, requests)
	}
}

func (l *SshListener) serveChannel(live *sessions, user string, ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()

	// Clients hold input back until the shell request is answered.
	select {
	case <-waitForShell(requests):
	case <-live.ctx.Done():
		return
	}

	live.serve(newLineEndings(ch), func(ctx context.Context) context.Context {
		return WithUser(ctx, user)
	})
}

// waitForShell answers channel requests and closes the returned channel
// once the client asks for a shell. A pty is refused so the client keeps
// local echo and line editing.
func waitForShell(in <-chan *ssh.Request) <-chan struct{} {
	ready := make(chan struct{})
	go func() {
		opened := false
		for req := range in {
			ok := req.Type == "shell" && !opened
			req.Reply(ok, nil)
			if ok {
				opened = true
				close(ready)
			}
		}
	}()
	return ready
}
