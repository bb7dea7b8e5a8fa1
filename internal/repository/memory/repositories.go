package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
)

type applicationRepository struct {
	scope
}

func (r *applicationRepository) Create(ctx context.Context, app *model.Application) error {
	return r.do(func(st *state) error {
		if app.ID == uuid.Nil {
			app.ID = uuid.New()
		}
		if _, ok := st.applications[app.ID]; ok {
			return apperrors.Conflict("application already exists", nil)
		}
		if app.Status == model.ApplicationStatusPending && pendingFor(st, app.AdminEmail) {
			return apperrors.Conflict("application already exists", nil)
		}
		now := time.Now().UTC()
		if app.SubmittedAt.IsZero() {
			app.SubmittedAt = now
		}
		app.UpdatedAt = now
		st.applications[app.ID] = app.Clone()
		st.appOrder = append(st.appOrder, app.ID)
		return nil
	})
}

func (r *applicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var out *model.Application
	err := r.do(func(st *state) error {
		app, ok := st.applications[id]
		if !ok {
			return apperrors.NotFound("application", nil)
		}
		out = app.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock here: the transaction already holds the store mutex.
func (r *applicationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	return r.Get(ctx, id)
}

func (r *applicationRepository) Update(ctx context.Context, app *model.Application) error {
	return r.do(func(st *state) error {
		current, ok := st.applications[app.ID]
		if !ok {
			return apperrors.NotFound("application", nil)
		}
		app.UpdatedAt = time.Now().UTC()
		updated := current.Clone()
		updated.Status = app.Status
		updated.ProcessedAt = app.ProcessedAt
		updated.ProcessedBy = app.ProcessedBy
		updated.RejectionReason = app.RejectionReason
		updated.UpdatedAt = app.UpdatedAt
		st.applications[app.ID] = updated.Clone()
		return nil
	})
}

func (r *applicationRepository) List(ctx context.Context, filters *model.ApplicationFilters) ([]*model.Application, error) {
	out := []*model.Application{}
	err := r.do(func(st *state) error {
		for _, id := range st.appOrder {
			app := st.applications[id]
			if filters != nil && filters.Status != "" && app.Status != filters.Status {
				continue
			}
			out = append(out, app.Clone())
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, err
}

func (r *applicationRepository) HasPendingForEmail(ctx context.Context, email string) (bool, error) {
	var found bool
	err := r.do(func(st *state) error {
		found = pendingFor(st, email)
		return nil
	})
	return found, err
}

func pendingFor(st *state, email string) bool {
	for _, app := range st.applications {
		if app.Status == model.ApplicationStatusPending && app.AdminEmail == email {
			return true
		}
	}
	return false
}

type clinicRepository struct {
	scope
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	return r.do(func(st *state) error {
		if clinic.ID == uuid.Nil {
			clinic.ID = uuid.New()
		}
		for _, existing := range st.clinics {
			if existing.ID == clinic.ID || existing.ApplicationID == clinic.ApplicationID {
				return apperrors.Conflict("clinic already exists", nil)
			}
		}
		now := time.Now().UTC()
		clinic.CreatedAt = now
		clinic.UpdatedAt = now
		cp := *clinic
		st.clinics[clinic.ID] = &cp
		return nil
	})
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var out *model.Clinic
	err := r.do(func(st *state) error {
		clinic, ok := st.clinics[id]
		if !ok {
			return apperrors.NotFound("clinic", nil)
		}
		cp := *clinic
		out = &cp
		return nil
	})
	return out, err
}

func (r *clinicRepository) GetByApplication(ctx context.Context, applicationID uuid.UUID) (*model.Clinic, error) {
	var out *model.Clinic
	err := r.do(func(st *state) error {
		for _, clinic := range st.clinics {
			if clinic.ApplicationID == applicationID {
				cp := *clinic
				out = &cp
				return nil
			}
		}
		return apperrors.NotFound("clinic", nil)
	})
	return out, err
}

func (r *clinicRepository) AssignAccount(ctx context.Context, assoc *model.ClinicAccount) error {
	return r.do(func(st *state) error {
		if _, ok := st.clinics[assoc.ClinicID]; !ok {
			return apperrors.NotFound("clinic", nil)
		}
		if _, ok := st.accounts[assoc.AccountID]; !ok {
			return apperrors.NotFound("account", nil)
		}
		for _, existing := range st.clinicAccounts {
			if existing.ClinicID == assoc.ClinicID && existing.AccountID == assoc.AccountID {
				return apperrors.Conflict("clinic account already exists", nil)
			}
		}
		if assoc.CreatedAt.IsZero() {
			assoc.CreatedAt = time.Now().UTC()
		}
		cp := *assoc
		st.clinicAccounts = append(st.clinicAccounts, &cp)
		return nil
	})
}

func (r *clinicRepository) ListAccounts(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicAccount, error) {
	return r.listAssocs(func(a *model.ClinicAccount) bool { return a.ClinicID == clinicID })
}

func (r *clinicRepository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*model.ClinicAccount, error) {
	return r.listAssocs(func(a *model.ClinicAccount) bool { return a.AccountID == accountID })
}

func (r *clinicRepository) listAssocs(match func(*model.ClinicAccount) bool) ([]*model.ClinicAccount, error) {
	out := []*model.ClinicAccount{}
	err := r.do(func(st *state) error {
		for _, assoc := range st.clinicAccounts {
			if match(assoc) {
				cp := *assoc
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

type accountRepository struct {
	scope
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.do(func(st *state) error {
		if account.ID == uuid.Nil {
			account.ID = uuid.New()
		}
		for _, existing := range st.accounts {
			if existing.ID == account.ID || existing.Email == account.Email || existing.Username == account.Username {
				return apperrors.Conflict("account already exists", nil)
			}
		}
		if account.Status == "" {
			account.Status = model.AccountStatusActive
		}
		now := time.Now().UTC()
		account.CreatedAt = now
		account.UpdatedAt = now
		cp := *account
		st.accounts[account.ID] = &cp
		st.accountOrder = append(st.accountOrder, account.ID)
		return nil
	})
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.ID == id })
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Email == email })
}

func (r *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(func(a *model.Account) bool { return a.Email == email })
}

func (r *accountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(func(a *model.Account) bool { return a.Username == username })
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, mustChange bool) error {
	return r.do(func(st *state) error {
		account, ok := st.accounts[id]
		if !ok {
			return apperrors.NotFound("account", nil)
		}
		cp := *account
		cp.PasswordHash = hash
		cp.MustChangePassword = mustChange
		cp.UpdatedAt = time.Now().UTC()
		st.accounts[id] = &cp
		return nil
	})
}

func (r *accountRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.do(func(st *state) error {
		n = len(st.accounts)
		return nil
	})
	return n, err
}

func (r *accountRepository) find(match func(*model.Account) bool) (*model.Account, error) {
	var out *model.Account
	err := r.do(func(st *state) error {
		for _, id := range st.accountOrder {
			if account := st.accounts[id]; match(account) {
				cp := *account
				out = &cp
				return nil
			}
		}
		return apperrors.NotFound("account", nil)
	})
	return out, err
}

func (r *accountRepository) exists(match func(*model.Account) bool) (bool, error) {
	_, err := r.find(match)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

type outboxRepository struct {
	scope
}

func cloneEvent(evt *model.OutboxEvent) *model.OutboxEvent {
	cp := *evt
	cp.Payload = append([]byte(nil), evt.Payload...)
	return &cp
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return apperrors.Internal(nil)
	}
	return r.do(func(st *state) error {
		event.ID = uuid.New()
		now := time.Now().UTC()
		event.CreatedAt = now
		event.UpdatedAt = now
		event.Status = model.OutboxStatusPending
		st.outbox = append(st.outbox, cloneEvent(event))
		return nil
	})
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	out := []*model.OutboxEvent{}
	now := time.Now().UTC()
	err := r.do(func(st *state) error {
		for _, evt := range st.outbox {
			if limit > 0 && len(out) >= limit {
				break
			}
			if evt.Status != model.OutboxStatusPending {
				continue
			}
			if evt.RetryAt != nil && evt.RetryAt.After(now) {
				continue
			}
			out = append(out, cloneEvent(evt))
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	return r.do(func(st *state) error {
		for i, evt := range st.outbox {
			if evt.ID != id {
				continue
			}
			cp := cloneEvent(evt)
			now := time.Now().UTC()
			cp.Status = status
			cp.ErrorMessage = errorMessage
			cp.RetryAt = retryAt
			if errorMessage != nil {
				cp.RetryCount++
			}
			if status == model.OutboxStatusProcessed {
				cp.ProcessedAt = &now
			}
			cp.UpdatedAt = now
			st.outbox[i] = cp
			return nil
		}
		return apperrors.NotFound("outbox event", nil)
	})
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.do(func(st *state) error {
		kept := st.outbox[:0]
		for _, evt := range st.outbox {
			if evt.Status == model.OutboxStatusProcessed && evt.ProcessedAt != nil && evt.ProcessedAt.Before(before) {
				deleted++
				continue
			}
			kept = append(kept, evt)
		}
		st.outbox = kept
		return nil
	})
	return deleted, err
}

type notificationRepository struct {
	scope
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.do(func(st *state) error {
		if _, ok := st.accounts[n.AccountID]; !ok {
			return apperrors.NotFound("account", nil)
		}
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		now := time.Now().UTC()
		n.CreatedAt = now
		n.UpdatedAt = now
		cp := *n
		st.notifications = append(st.notifications, &cp)
		return nil
	})
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) error {
	return r.do(func(st *state) error {
		for i, existing := range st.notifications {
			if existing.ID == n.ID {
				n.UpdatedAt = time.Now().UTC()
				cp := *n
				st.notifications[i] = &cp
				return nil
			}
		}
		return apperrors.NotFound("notification", nil)
	})
}

func (r *notificationRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Notification, error) {
	out := []*model.Notification{}
	err := r.do(func(st *state) error {
		for _, n := range st.notifications {
			if n.AccountID == accountID {
				cp := *n
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
