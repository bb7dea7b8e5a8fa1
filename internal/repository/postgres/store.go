package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-onboarding/internal/repository"
)

// Store is the Postgres unit of work.
type Store struct {
	db *sqlx.DB
	txScope
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, txScope: txScope{base: NewBaseRepository(db)}}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepository{s.base}
}

// WithTx executes fn within a transaction. A returned error or a panic rolls
// back everything fn wrote.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txScope{base: NewBaseRepository(tx)}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// txScope hands out repositories sharing one executor.
type txScope struct {
	base BaseRepository
}

func (t *txScope) Applications() repository.ApplicationRepository {
	return &applicationRepository{t.base}
}

func (t *txScope) Clinics() repository.ClinicRepository {
	return &clinicRepository{t.base}
}

func (t *txScope) Accounts() repository.AccountRepository {
	return &accountRepository{t.base}
}

func (t *txScope) Outbox() repository.OutboxRepository {
	return &outboxRepository{t.base}
}

var _ repository.Store = (*Store)(nil)
