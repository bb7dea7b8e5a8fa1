// Package memory is a transactional in-memory Store for local runs and tests.
// Every transaction works on a private copy of the data that replaces the
// shared copy only on commit.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
)

type state struct {
	applications   map[uuid.UUID]*model.Application
	appOrder       []uuid.UUID
	clinics        map[uuid.UUID]*model.Clinic
	clinicAccounts []*model.ClinicAccount
	accounts       map[uuid.UUID]*model.Account
	accountOrder   []uuid.UUID
	outbox         []*model.OutboxEvent
	notifications  []*model.Notification
}

func newState() *state {
	return &state{
		applications: make(map[uuid.UUID]*model.Application),
		clinics:      make(map[uuid.UUID]*model.Clinic),
		accounts:     make(map[uuid.UUID]*model.Account),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, app := range s.applications {
		c.applications[id] = app.Clone()
	}
	c.appOrder = append([]uuid.UUID(nil), s.appOrder...)
	for id, clinic := range s.clinics {
		cp := *clinic
		c.clinics[id] = &cp
	}
	for _, assoc := range s.clinicAccounts {
		cp := *assoc
		c.clinicAccounts = append(c.clinicAccounts, &cp)
	}
	for id, account := range s.accounts {
		cp := *account
		c.accounts[id] = &cp
	}
	c.accountOrder = append([]uuid.UUID(nil), s.accountOrder...)
	for _, evt := range s.outbox {
		c.outbox = append(c.outbox, cloneEvent(evt))
	}
	for _, n := range s.notifications {
		cp := *n
		c.notifications = append(c.notifications, &cp)
	}
	return c
}

// scope runs fn against the data a repository is bound to.
type scope interface {
	do(fn func(st *state) error) error
}

// Store serializes all access behind one mutex. A transaction holds it from
// begin to commit, which also serializes concurrent approvals.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) do(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *Store) Applications() repository.ApplicationRepository {
	return &applicationRepository{scope: s}
}

func (s *Store) Clinics() repository.ClinicRepository {
	return &clinicRepository{scope: s}
}

func (s *Store) Accounts() repository.AccountRepository {
	return &accountRepository{scope: s}
}

func (s *Store) Outbox() repository.OutboxRepository {
	return &outboxRepository{scope: s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepository{scope: s}
}

// WithTx must not be nested, and fn must only use the repositories of tx.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&txScope{state: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *Store) Close() error {
	return nil
}

type txScope struct {
	state *state
}

func (t *txScope) do(fn func(st *state) error) error {
	return fn(t.state)
}

func (t *txScope) Applications() repository.ApplicationRepository {
	return &applicationRepository{scope: t}
}

func (t *txScope) Clinics() repository.ClinicRepository {
	return &clinicRepository{scope: t}
}

func (t *txScope) Accounts() repository.AccountRepository {
	return &accountRepository{scope: t}
}

func (t *txScope) Outbox() repository.OutboxRepository {
	return &outboxRepository{scope: t}
}

var _ repository.Store = (*Store)(nil)
