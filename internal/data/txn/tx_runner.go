package txn

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/hackfeed-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
)

// Runner provides a shared transaction boundary for multi-row writes.
type Runner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormRunner struct {
	db *gorm.DB
}

// NewGormRunner returns a transaction runner backed by GORM transactions.
// Repos called with the ctx handed to fn join the transaction. A ctx that
// already carries a transaction nests through a savepoint.
func NewGormRunner(db *gorm.DB) Runner {
	return &gormRunner{db: db}
}

func (r *gormRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return apperr.New(apperr.CodeInternal, "txn.InTx", "transaction runner has nil db", nil)
	}
	return dbctx.DB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.WithTx(ctx, tx))
	})
}
