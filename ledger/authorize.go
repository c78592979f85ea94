package ledger

import "context"

// capability is what a caller may do with another account's tickets.
type capability int

const (
	denied capability = iota
	asOwner
	asDelegate
)

func (c capability) String() string {
	switch c {
	case asOwner:
		return "owner"
	case asDelegate:
		return "escrow delegate"
	}
	return "denied"
}

// authorize is the single decision point for moving owner's tickets. For an
// escrow delegate the escrow read lock stays held until release is called, so
// a revoke cannot land between the decision and the commit it guards.
func (l *Ledger) authorize(ctx context.Context, caller, owner string) (verdict capability, release func(), err error) {
	if caller == owner {
		return asOwner, func() {}, nil
	}

	l.escrowMu.RLock()
	g, ok, err := l.loadGrant(ctx, owner)
	if err != nil {
		l.escrowMu.RUnlock()
		return denied, nil, err
	}
	if ok && g.Grantee == caller {
		return asDelegate, l.escrowMu.RUnlock, nil
	}
	l.escrowMu.RUnlock()
	return denied, nil, nil
}
