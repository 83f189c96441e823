package listener

import (
	"context"
	"io"
	"sync"
)

type userKey struct{}

// WithUser records the name a client authenticated as.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// User returns the name the client authenticated as, or "" when the
// protocol carries none.
func User(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// sessions tracks the connections a listener has handed to the
// ConnectionManager so they can be cancelled together and drained.
type sessions struct {
	cm     *ConnectionManager
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSessions(cm *ConnectionManager) *sessions {
	// Connections outlive the accept loop's context until drain is called.
	ctx, cancel := context.WithCancel(context.Background())
	return &sessions{cm: cm, ctx: ctx, cancel: cancel}
}

// serve runs one connection to completion. ctxFn may decorate the shared
// connection context.
func (s *sessions) serve(rw io.ReadWriter, ctxFn func(context.Context) context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	ctx := s.ctx
	if ctxFn != nil {
		ctx = ctxFn(ctx)
	}
	s.cm.AcceptConnection(ctx, rw)
}

func (s *sessions) drain() {
	s.cancel()
	s.wg.Wait()
}
