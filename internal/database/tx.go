package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Transactor runs fn inside one unit of work. Calls made with a context that
// already carries a unit of work join it instead of opening a new one, so a
// fulfillment and every ledger append it triggers commit or roll back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// Scope is the per-transaction state stored in the context.
type Scope struct {
	Tx    *sqlx.Tx
	Owner interface{}
	mu    sync.Mutex
	hooks []func()
}

func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, txKey{}, s)
}

func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(txKey{}).(*Scope)
	return s
}

// AfterCommit registers fn to run once the surrounding unit of work commits.
// Hooks are dropped on rollback. Without a unit of work fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	s := ScopeFrom(ctx)
	if s == nil {
		fn()
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// RunHooks executes the registered hooks in registration order.
func (s *Scope) RunHooks() {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

// TxManager is the Postgres Transactor.
type TxManager struct {
	DB *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{DB: db}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s := ScopeFrom(ctx); s != nil && s.Tx != nil {
		return fn(ctx)
	}

	tx, err := m.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	scope := &Scope{Tx: tx}
	if err := fn(WithScope(ctx, scope)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	scope.RunHooks()
	return nil
}

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type Executor = sqlx.ExtContext

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db *sqlx.DB) Executor {
	if s := ScopeFrom(ctx); s != nil && s.Tx != nil {
		return s.Tx
	}
	return db
}
