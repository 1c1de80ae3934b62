// Package apptest holds fakes shared by application service tests.
package apptest

import (
	"context"
	"sync"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TxManager runs fn directly and counts calls
type TxManager struct {
	mu    sync.Mutex
	Calls int
}

// WithinTransaction implements shared.TransactionManager
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	return fn(ctx)
}

// Recorder keeps every recorded event
type Recorder struct {
	mu     sync.Mutex
	Events []shared.DomainEvent
	Err    error
}

// Record implements shared.EventRecorder
func (r *Recorder) Record(_ context.Context, events ...shared.DomainEvent) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, events...)
	return nil
}

// Types returns the recorded event types in order
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.EventType()
	}
	return out
}

// ActorContext returns a context acting as a new user with role
func ActorContext(role identity.Role) (context.Context, identity.Actor) {
	actor := identity.Actor{UserID: uuid.New(), Username: string(role) + "-user", Role: role}
	return identity.WithActor(context.Background(), actor), actor
}

var (
	_ shared.TransactionManager = (*TxManager)(nil)
	_ shared.EventRecorder      = (*Recorder)(nil)
)
