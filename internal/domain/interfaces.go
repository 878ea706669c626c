package domain

// OrderStore is the durable order and match storage used by the engine.
type OrderStore interface {
	Insert(order *Order) error
	// UpdateFields applies u to a pending order and reports whether a row changed.
	UpdateFields(orderID string, u OrderUpdate) (bool, error)
	// GetByID returns nil, nil when the order does not exist.
	GetByID(orderID string) (*Order, error)
	// GetActiveOrders lists pending orders of an outcome.
	// Buys sort by price descending, sells by price ascending, both then by timestamp ascending.
	// A nil side lists both directions by timestamp ascending.
	GetActiveOrders(outcome Outcome, side *Side) ([]Order, error)
	RecordMatch(match *MatchResult) error
	// GetOrdersByOwner returns the owner's pending orders, newest first.
	GetOrdersByOwner(owner string) ([]Order, error)
	// ListMatches returns direct matches on outcome at or after since, oldest first.
	ListMatches(outcome Outcome, since int64) ([]MatchResult, error)
	// Transaction runs fn against a store bound to a single transaction.
	Transaction(fn func(tx OrderStore) error) error
}

