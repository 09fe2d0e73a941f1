package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/advisory-service/internal/domain"
)

// MemoryUserStore keeps accounts in process memory. Transactions are
// serialized and operate on a copy that replaces the live state on commit.
type MemoryUserStore struct {
	mu    sync.RWMutex
	state *memoryState
	now   func() time.Time
}

// NewMemoryUserStore returns an empty in-memory store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{state: newMemoryState(), now: time.Now}
}

// Users returns a repository whose calls are individually atomic.
func (s *MemoryUserStore) Users() UserRepository {
	return &lockedMemoryRepository{store: s}
}

// RunInTx runs fn against a private copy and publishes it only if fn succeeds.
func (s *MemoryUserStore) RunInTx(ctx context.Context, fn func(ctx context.Context, users UserRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(ctx, &memoryRepository{state: draft, now: s.now}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

// Len reports the number of stored accounts.
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.byID)
}

type memoryState struct {
	byID      map[string]*domain.User
	idByEmail map[string]string
}

func newMemoryState() *memoryState {
	return &memoryState{
		byID:      make(map[string]*domain.User),
		idByEmail: make(map[string]string),
	}
}

func (st *memoryState) clone() *memoryState {
	c := &memoryState{
		byID:      make(map[string]*domain.User, len(st.byID)),
		idByEmail: make(map[string]string, len(st.idByEmail)),
	}
	for id, u := range st.byID {
		c.byID[id] = u.Clone()
	}
	for email, id := range st.idByEmail {
		c.idByEmail[email] = id
	}
	return c
}

type memoryRepository struct {
	state *memoryState
	now   func() time.Time
}

func (r *memoryRepository) Create(_ context.Context, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	if _, exists := r.state.idByEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.state.byID[user.ID] = user.Clone()
	r.state.idByEmail[user.Email] = user.ID
	return nil
}

func (r *memoryRepository) Update(_ context.Context, user *domain.User) error {
	current, ok := r.state.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	updated := user.Clone()
	// email and creation time are immutable
	updated.Email = current.Email
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.now()
	r.state.byID[user.ID] = updated
	user.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.state.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *memoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, ok := r.state.idByEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryRepository) GetByEmailForUpdate(ctx context.Context, email string) (*domain.User, error) {
	return r.GetByEmail(ctx, email)
}

type lockedMemoryRepository struct {
	store *MemoryUserStore
}

func (r *lockedMemoryRepository) write(ctx context.Context, fn func(repo *memoryRepository) error) error {
	return r.store.RunInTx(ctx, func(_ context.Context, users UserRepository) error {
		return fn(users.(*memoryRepository))
	})
}

func (r *lockedMemoryRepository) read() *memoryRepository {
	return &memoryRepository{state: r.store.state, now: r.store.now}
}

func (r *lockedMemoryRepository) Create(ctx context.Context, user *domain.User) error {
	return r.write(ctx, func(repo *memoryRepository) error { return repo.Create(ctx, user) })
}

func (r *lockedMemoryRepository) Update(ctx context.Context, user *domain.User) error {
	return r.write(ctx, func(repo *memoryRepository) error { return repo.Update(ctx, user) })
}

func (r *lockedMemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.read().GetByID(ctx, id)
}

func (r *lockedMemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.read().GetByEmail(ctx, email)
}

// GetByEmailForUpdate outside a transaction holds no lock beyond the read itself.
func (r *lockedMemoryRepository) GetByEmailForUpdate(ctx context.Context, email string) (*domain.User, error) {
	return r.GetByEmail(ctx, email)
}
