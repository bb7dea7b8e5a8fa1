package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
)

const accountColumns = `id, username, email, password_hash, role, status, must_change_password, created_at, updated_at`

type accountRepository struct {
	BaseRepository
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Status == "" {
		account.Status = model.AccountStatusActive
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.exec(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Status,
		account.MustChangePassword,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return translate(err, "account")
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if err := r.get(ctx, &account, query, id); err != nil {
		return nil, translate(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	if err := r.get(ctx, &account, query, email); err != nil {
		return nil, translate(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.get(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email); err != nil {
		return false, translate(err, "account")
	}
	return exists, nil
}

func (r *accountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := r.get(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username); err != nil {
		return false, translate(err, "account")
	}
	return exists, nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, mustChange bool) error {
	query := `
		UPDATE accounts
		SET password_hash = $1, must_change_password = $2, updated_at = $3
		WHERE id = $4
	`
	return r.execOne(ctx, "account", query, hash, mustChange, time.Now().UTC(), id)
}

func (r *accountRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.get(ctx, &n, `SELECT COUNT(*) FROM accounts`); err != nil {
		return 0, translate(err, "account")
	}
	return n, nil
}
