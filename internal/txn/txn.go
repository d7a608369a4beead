// Package txn carries one unit of work through ctx so repositories outside
// the package that opened it write inside it. A SQL unit shares its *sqlx.Tx;
// an in-memory unit collects writes and applies them only when it commits.
package txn

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
)

type sqlKey struct{}

type stagedKey struct{}

// WithSQL makes tx the unit of work for repositories called with the
// returned context.
func WithSQL(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, sqlKey{}, tx)
}

// SQL returns the transaction carried by ctx.
func SQL(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(sqlKey{}).(*sqlx.Tx)
	return tx, ok
}

// Ext returns the transaction carried by ctx, or db when there is none.
func Ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := SQL(ctx); ok {
		return tx
	}
	return db
}

// Run calls fn inside the transaction carried by ctx, or inside a new one
// committed when fn succeeds.
func Run(ctx context.Context, db *sqlx.DB, fn func(q sqlx.ExtContext) error) error {
	if tx, ok := SQL(ctx); ok {
		return fn(tx)
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Staged is an in-memory unit of work.
type Staged struct {
	mu     sync.Mutex
	writes []func()
}

// Stage starts an in-memory unit of work.
func Stage(ctx context.Context) (context.Context, *Staged) {
	s := &Staged{}
	return context.WithValue(ctx, stagedKey{}, s), s
}

// Commit applies the staged writes in the order they were made.
func (s *Staged) Commit() {
	s.mu.Lock()
	writes := s.writes
	s.writes = nil
	s.mu.Unlock()
	for _, w := range writes {
		w()
	}
}

// Defer holds write until the unit carried by ctx commits. Without a unit it
// is applied at once.
func Defer(ctx context.Context, write func()) {
	s, ok := ctx.Value(stagedKey{}).(*Staged)
	if !ok {
		write()
		return
	}
	s.mu.Lock()
	s.writes = append(s.writes, write)
	s.mu.Unlock()
}
