package auth

import (
	"context"
	"sync"
	"time"
)

// Admin is the authenticated store administrator attached to a request.
type Admin struct {
	UID       string
	Email     string
	ExpiresAt time.Time
}

type adminKey struct{}

type adminSlotKey struct{}

type adminSlot struct {
	mu    sync.Mutex
	admin *Admin
}

// TrackAdmin prepares ctx so that outer middleware can observe an admin attached further
// down the handler chain.
func TrackAdmin(ctx context.Context) context.Context {
	if _, ok := ctx.Value(adminSlotKey{}).(*adminSlot); ok {
		return ctx
	}
	return context.WithValue(ctx, adminSlotKey{}, &adminSlot{})
}

// WithAdmin stores the admin within the context for downstream handlers.
func WithAdmin(ctx context.Context, admin *Admin) context.Context {
	if admin == nil {
		return ctx
	}
	if slot, ok := ctx.Value(adminSlotKey{}).(*adminSlot); ok {
		slot.mu.Lock()
		copied := *admin
		slot.admin = &copied
		slot.mu.Unlock()
	}
	return context.WithValue(ctx, adminKey{}, admin)
}

// AdminFromContext retrieves the admin previously stored in context.
func AdminFromContext(ctx context.Context) (*Admin, bool) {
	if ctx == nil {
		return nil, false
	}
	if admin, ok := ctx.Value(adminKey{}).(*Admin); ok && admin != nil {
		return admin, true
	}
	if slot, ok := ctx.Value(adminSlotKey{}).(*adminSlot); ok {
		slot.mu.Lock()
		defer slot.mu.Unlock()
		if slot.admin != nil {
			return slot.admin, true
		}
	}
	return nil, false
}
