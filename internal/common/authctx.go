package common

import "context"

type ctxKey string

const (
	identityKey     ctxKey = "auth/identity"
	identitySlotKey ctxKey = "auth/identity-slot"
)

// Identity is the authenticated caller as asserted by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Admin  bool
}

// WithIdentity stores the authenticated caller on the provided context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if slot, ok := ctx.Value(identitySlotKey).(*Identity); ok && slot != nil {
		*slot = id
	}
	return context.WithValue(ctx, identityKey, id)
}

// WithIdentitySlot installs a slot that WithIdentity fills further down the
// handler chain, so outer middleware can read the caller after next returns.
func WithIdentitySlot(ctx context.Context) (context.Context, *Identity) {
	slot := &Identity{}
	return context.WithValue(ctx, identitySlotKey, slot), slot
}

// IdentityFrom extracts the authenticated caller from the context if present.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// WithUserID stores a bare user identifier, keeping any other identity fields.
func WithUserID(ctx context.Context, userID string) context.Context {
	id, _ := IdentityFrom(ctx)
	id.UserID = userID
	return WithIdentity(ctx, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return "", false
	}
	return id.UserID, true
}

// IsAdmin reports whether the caller on the context holds the admin role.
func IsAdmin(ctx context.Context) bool {
	id, ok := IdentityFrom(ctx)
	return ok && id.Admin
}
