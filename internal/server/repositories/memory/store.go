// Package memory implements the repositories in process memory. It backs
// the "memory" database DSN and the service and HTTP tests.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
)

// Store holds every table. The repositories returned by its methods share it.
type Store struct {
	mu            sync.Mutex
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	otps          map[string]models.OTP
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:         make(map[string]models.User),
		refreshTokens: make(map[string]models.RefreshToken),
		otps:          make(map[string]models.OTP),
	}
}

// Users returns the credential repository.
func (s *Store) Users() *Users { return &Users{s: s} }

// RefreshTokens returns the refresh token repository.
func (s *Store) RefreshTokens() *RefreshTokens { return &RefreshTokens{s: s} }

// OTPs returns the OTP repository.
func (s *Store) OTPs() *OTPs { return &OTPs{s: s} }

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; ok {
		return common.ErrStore
	}
	row := *u
	row.Password = bytes.Clone(u.Password)
	r.s.users[u.ID] = row
	return nil
}

func (r *Users) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Password = bytes.Clone(u.Password)
	return &u, nil
}

func (r *Users) Exists(_ context.Context, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.users[userID]
	return ok, nil
}

func (r *Users) UpdatePassword(_ context.Context, userID string, sealed []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.Password = bytes.Clone(sealed)
	r.s.users[userID] = u
	return nil
}

func (r *Users) SetRefreshTokenID(_ context.Context, userID, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.RefreshTokenID = tokenID
	r.s.users[userID] = u
	return nil
}

func (r *Users) ClearRefreshTokenID(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.users[userID]; ok {
		u.RefreshTokenID = ""
		r.s.users[userID] = u
	}
	return nil
}

type RefreshTokens struct{ s *Store }

func (r *RefreshTokens) Create(_ context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.refreshTokens[t.ID]; ok {
		return common.ErrStore
	}
	// mirrors the foreign key to users
	if _, ok := r.s.users[t.UserID]; !ok {
		return common.ErrStore
	}
	row := *t
	row.Token = ""
	row.Sealed = bytes.Clone(t.Sealed)
	r.s.refreshTokens[t.ID] = row
	return nil
}

func (r *RefreshTokens) List(_ context.Context) ([]*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.RefreshToken, 0, len(r.s.refreshTokens))
	for _, t := range r.s.refreshTokens {
		t.Sealed = bytes.Clone(t.Sealed)
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RefreshTokens) GetByID(_ context.Context, id string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.refreshTokens[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	t.Sealed = bytes.Clone(t.Sealed)
	return &t, nil
}

func (r *RefreshTokens) Rotate(_ context.Context, id string, prev, next []byte, expires time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.refreshTokens[id]
	if !ok || !bytes.Equal(t.Sealed, prev) {
		return false, nil
	}
	t.Sealed = bytes.Clone(next)
	t.Expires = expires
	r.s.refreshTokens[id] = t
	return true, nil
}

func (r *RefreshTokens) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.refreshTokens, id)
	return nil
}

type OTPs struct{ s *Store }

func (r *OTPs) Upsert(_ context.Context, o *models.OTP) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.otps[o.UserID] = *o
	return nil
}

func (r *OTPs) FindByCode(_ context.Context, code, preferUser string) (*models.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if o, ok := r.s.otps[preferUser]; ok && o.Code == code {
		return &o, nil
	}

	var found *models.OTP
	for _, o := range r.s.otps {
		if o.Code != code {
			continue
		}
		if found == nil || o.UserID < found.UserID {
			o := o
			found = &o
		}
	}
	if found == nil {
		return nil, common.ErrorNotFound
	}
	return found, nil
}

func (r *OTPs) Consume(_ context.Context, userID, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.otps[userID]
	if !ok || o.Code != code {
		return false, nil
	}
	delete(r.s.otps, userID)
	return true, nil
}

func (r *OTPs) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, o := range r.s.otps {
		if o.Expired(now) {
			delete(r.s.otps, id)
			n++
		}
	}
	return n, nil
}
