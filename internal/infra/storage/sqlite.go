package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"risk_market/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// busyTimeoutPragma makes concurrent writers wait instead of failing with SQLITE_BUSY.
const busyTimeoutPragma = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Storage is the gorm-backed domain.OrderStore.
type Storage struct {
	db *gorm.DB
}

var _ domain.OrderStore = (*Storage)(nil)

// NewStorage opens (or creates) the SQLite database at dbPath and migrates the schema.
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath+busyTimeoutPragma), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single connection serializes writers; transactions must only use their own handle.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Order{}, &domain.MatchResult{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Order Operations
// ======================================================================================

// Insert stores a new order.
func (s *Storage) Insert(order *domain.Order) error {
	if err := s.db.Create(order).Error; err != nil {
		return domain.NewStorageError("insert order", err)
	}
	return nil
}

// UpdateFields applies u to the order only while it is pending.
// Returns false when the order does not exist or already left the book.
func (s *Storage) UpdateFields(orderID string, u domain.OrderUpdate) (bool, error) {
	fields := make(map[string]interface{}, 2)
	if u.Remaining != nil {
		fields["remaining"] = *u.Remaining
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	if len(fields) == 0 {
		return false, nil
	}

	res := s.db.Model(&domain.Order{}).
		Where("id = ? AND status = ?", orderID, domain.StatusPending).
		Updates(fields)
	if res.Error != nil {
		return false, domain.NewStorageError("update order", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetByID retrieves an order by id
func (s *Storage) GetByID(orderID string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, domain.NewStorageError("get order", err)
	}
	return &order, nil
}

// GetActiveOrders lists pending orders of outcome in matching order.
// Prices are compared as exact decimals after the SQL filter; TEXT ordering would misplace "0.4" and "0.40".
func (s *Storage) GetActiveOrders(outcome domain.Outcome, side *domain.Side) ([]domain.Order, error) {
	q := s.db.Where("outcome = ? AND status = ?", outcome, domain.StatusPending)
	if side != nil {
		q = q.Where("side = ?", *side)
	}

	var orders []domain.Order
	if err := q.Order("timestamp ASC").Order("id ASC").Find(&orders).Error; err != nil {
		return nil, domain.NewStorageError("list active orders", err)
	}

	if side != nil {
		SortForMatching(orders, *side)
	}
	return orders, nil
}

// SortForMatching orders one side of a book by price-time priority.
// The input must already be in ascending timestamp order; the stable sort keeps it within a price.
func SortForMatching(orders []domain.Order, side domain.Side) {
	sort.SliceStable(orders, func(i, j int) bool {
		if side == domain.SideBuy {
			return orders[i].Price.GreaterThan(orders[j].Price)
		}
		return orders[i].Price.LessThan(orders[j].Price)
	})
}

// GetOrdersByOwner returns the owner's pending orders, newest first.
func (s *Storage) GetOrdersByOwner(owner string) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.Where("owner = ? AND status = ?", owner, domain.StatusPending).
		Order("timestamp DESC").
		Find(&orders).Error
	if err != nil {
		return nil, domain.NewStorageError("list owner orders", err)
	}
	return orders, nil
}

// ======================================================================================
// Match Operations
// ======================================================================================

// RecordMatch appends a match to the match log.
func (s *Storage) RecordMatch(match *domain.MatchResult) error {
	if err := s.db.Create(match).Error; err != nil {
		return domain.NewStorageError("record match", err)
	}
	return nil
}

// ListMatches returns direct matches on outcome at or after since, oldest first.
func (s *Storage) ListMatches(outcome domain.Outcome, since int64) ([]domain.MatchResult, error) {
	var matches []domain.MatchResult
	err := s.db.Where("kind = ? AND outcome = ? AND timestamp >= ?", domain.MatchDirect, outcome, since).
		Order("timestamp ASC").Order("id ASC").
		Find(&matches).Error
	if err != nil {
		return nil, domain.NewStorageError("list matches", err)
	}
	return matches, nil
}

// Transaction runs fn inside a database transaction. Any error rolls every write back.
func (s *Storage) Transaction(fn func(tx domain.OrderStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Storage{db: tx})
	})
}
