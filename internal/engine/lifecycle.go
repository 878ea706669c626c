package engine

import (
	"fmt"
	"log/slog"

	"risk_market/internal/domain"
)

// CancelOrder cancels a pending order on behalf of owner.
//
// It returns false, without writing anything, when the order does not exist, is not pending,
// or belongs to someone else; callers cannot tell these cases apart.
func (e *Engine) CancelOrder(orderID, owner string) (bool, error) {
	order, err := e.store.GetByID(orderID)
	if err != nil {
		e.metrics.RecordError()
		return false, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if order == nil || order.Owner != owner || !order.IsPending() {
		return false, nil
	}

	// outcome and owner are immutable, so the unlocked read above is safe to act on
	unlock := e.locks.lock(order.Outcome)
	defer unlock()

	ok, err := e.store.UpdateFields(orderID, domain.Cancel())
	if err != nil {
		e.metrics.RecordError()
		return false, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if ok {
		e.metrics.RecordCancel()
		slog.Info("Order cancelled", slog.String("order", orderID), slog.String("owner", owner))
	}
	return ok, nil
}
