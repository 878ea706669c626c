package engine

import (
	"sync"

	"risk_market/internal/domain"
)

// outcomeLocks is the serialization point of the order book: one mutex per outcome.
//
// Minting and merge touch resting orders of the complementary outcome, so a match holds both
// locks, always taken yes before no. A cancellation only touches one order and holds only
// that order's outcome lock.
type outcomeLocks struct {
	yes sync.Mutex
	no  sync.Mutex
}

func (l *outcomeLocks) lock(outcome domain.Outcome) (unlock func()) {
	mu := &l.yes
	if outcome == domain.OutcomeNo {
		mu = &l.no
	}
	mu.Lock()
	return mu.Unlock
}

// lockBoth serializes a whole match; minting and merge mutate the complementary outcome's book.
func (l *outcomeLocks) lockBoth() (unlock func()) {
	l.yes.Lock()
	l.no.Lock()
	return func() {
		l.no.Unlock()
		l.yes.Unlock()
	}
}
