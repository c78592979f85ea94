package ledger

import (
	"context"
	"errors"
	"fmt"

	"eventers-ticket-ledger/codec"
	"eventers-ticket-ledger/logger"
	"eventers-ticket-ledger/model"
	"eventers-ticket-ledger/store"
)

// GrantAccess lets grantee transfer any of caller's tickets, replacing any
// previous grantee.
func (l *Ledger) GrantAccess(ctx context.Context, caller, grantee string) (err error) {
	defer observe("grant_access", &err)

	if err := requireCaller(caller); err != nil {
		return fmt.Errorf("grantAccess: %w", err)
	}
	if grantee == "" {
		return fmt.Errorf("grantAccess: grantee is required: %w", ErrValidation)
	}
	if grantee == caller {
		return fmt.Errorf("grantAccess: %s cannot grant itself: %w", caller, ErrValidation)
	}

	raw, err := codec.Marshal(model.EscrowGrant{Grantor: caller, Grantee: grantee, GrantedAt: l.now()})
	if err != nil {
		return fmt.Errorf("grantAccess: encode grant: %w", err)
	}

	l.escrowMu.Lock()
	defer l.escrowMu.Unlock()

	b := store.NewBatch()
	b.Set(escrowKey(caller), raw)
	if err := l.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("grantAccess: %w", err)
	}

	logger.Infof(ctx, "%s granted escrow to %s", caller, grantee)
	return nil
}

// RevokeAccess clears caller's grant if it names grantee.
func (l *Ledger) RevokeAccess(ctx context.Context, caller, grantee string) (err error) {
	defer observe("revoke_access", &err)

	if err := requireCaller(caller); err != nil {
		return fmt.Errorf("revokeAccess: %w", err)
	}

	l.escrowMu.Lock()
	defer l.escrowMu.Unlock()

	g, ok, err := l.loadGrant(ctx, caller)
	if err != nil {
		return fmt.Errorf("revokeAccess: %w", err)
	}
	if !ok || g.Grantee != grantee {
		return fmt.Errorf("revokeAccess: no grant from %s to %s: %w", caller, grantee, ErrNotFound)
	}

	b := store.NewBatch()
	b.Delete(escrowKey(caller))
	if err := l.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("revokeAccess: %w", err)
	}

	logger.Infof(ctx, "%s revoked escrow from %s", caller, grantee)
	return nil
}

// CheckAccess reports whether caller currently holds owner's escrow grant.
func (l *Ledger) CheckAccess(ctx context.Context, caller, owner string) (bool, error) {
	if caller == owner {
		return false, fmt.Errorf("checkAccess: %w", ErrSelfCheckNotAllowed)
	}

	l.escrowMu.RLock()
	defer l.escrowMu.RUnlock()

	g, ok, err := l.loadGrant(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("checkAccess: %w", err)
	}
	return ok && g.Grantee == caller, nil
}

// Grant returns grantor's current escrow grant.
func (l *Ledger) Grant(ctx context.Context, grantor string) (model.EscrowGrant, error) {
	l.escrowMu.RLock()
	defer l.escrowMu.RUnlock()

	g, ok, err := l.loadGrant(ctx, grantor)
	if err != nil {
		return model.EscrowGrant{}, fmt.Errorf("grant: %w", err)
	}
	if !ok {
		return model.EscrowGrant{}, fmt.Errorf("grant: %s has no grantee: %w", grantor, ErrNotFound)
	}
	return g, nil
}

// loadGrant must be called with escrowMu held.
func (l *Ledger) loadGrant(ctx context.Context, grantor string) (model.EscrowGrant, bool, error) {
	raw, err := l.store.Get(ctx, escrowKey(grantor))
	if errors.Is(err, store.ErrNotFound) {
		return model.EscrowGrant{}, false, nil
	}
	if err != nil {
		return model.EscrowGrant{}, false, fmt.Errorf("load grant of %s: %w", grantor, err)
	}

	var g model.EscrowGrant
	if err := codec.Unmarshal(raw, &g); err != nil {
		return model.EscrowGrant{}, false, fmt.Errorf("decode grant of %s: %w", grantor, err)
	}
	return g, true, nil
}
