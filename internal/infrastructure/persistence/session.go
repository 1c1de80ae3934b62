package persistence

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"gorm.io/gorm"
)

type txContextKey struct{}

// setSessionSQL publishes the acting user to the row-level-security policies.
// The third argument of set_config makes the values local to the transaction.
const setSessionSQL = "SELECT set_config('app.user_id', ?, true), set_config('app.user_role', ?, true)"

// GormTransactionManager implements shared.TransactionManager on top of GORM.
// The open transaction travels in the context so repositories join it.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a new GormTransactionManager
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// WithinTransaction runs fn inside a transaction. A nested call joins the
// outer transaction instead of opening a new one.
func (m *GormTransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applySessionActor(ctx, tx); err != nil {
			return err
		}
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// txFromContext returns the transaction opened by WithinTransaction, if any
func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx
}

// dbFor returns the transaction in ctx, or db bound to ctx
func dbFor(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// withSession runs fn where the row-level-security session settings are in
// effect: inside the caller's transaction, or a short read transaction.
func withSession(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(tx.WithContext(ctx))
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applySessionActor(ctx, tx); err != nil {
			return err
		}
		return fn(tx)
	})
}

func applySessionActor(ctx context.Context, tx *gorm.DB) error {
	actor, ok := identity.ActorFromContext(ctx)
	if !ok {
		return nil
	}
	return tx.Exec(setSessionSQL, actor.UserID.String(), string(actor.Role)).Error
}

var _ shared.TransactionManager = (*GormTransactionManager)(nil)
