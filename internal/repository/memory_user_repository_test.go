package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/advisory-service/internal/domain"
)

func TestMemoryUserStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	u := &domain.User{Email: "A@X.com", FullName: "A", Role: "student", PasswordHash: "h"}
	require.NoError(t, store.Users().Create(ctx, u))
	require.NotEmpty(t, u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := store.Users().GetByEmail(ctx, "a@X.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", byID.FullName)

	_, err = store.Users().GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryUserStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	require.NoError(t, store.Users().Create(ctx, &domain.User{Email: "a@x.com"}))
	err := store.Users().Create(ctx, &domain.User{Email: "A@x.com"})
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryUserStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	u := &domain.User{Email: "a@x.com", FullName: "A"}
	require.NoError(t, store.Users().Create(ctx, u))

	got, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	got.FullName = "mutated"

	again, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.FullName)
}

func TestMemoryUserStore_UpdateKeepsImmutableFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	u := &domain.User{Email: "a@x.com"}
	require.NoError(t, store.Users().Create(ctx, u))
	created := u.CreatedAt

	u.Email = "other@x.com"
	u.FullName = "renamed"
	u.CreatedAt = time.Time{}
	require.NoError(t, store.Users().Update(ctx, u))

	got, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, "renamed", got.FullName)

	require.ErrorIs(t, store.Users().Update(ctx, &domain.User{ID: "nope"}), ErrUserNotFound)
}

func TestMemoryUserStore_RunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context, users UserRepository) error {
		require.NoError(t, users.Create(ctx, &domain.User{Email: "a@x.com"}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	_, err = store.Users().GetByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryUserStore_RunInTxSerializes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	u := &domain.User{Email: "a@x.com"}
	require.NoError(t, store.Users().Create(ctx, u))

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = store.RunInTx(ctx, func(ctx context.Context, users UserRepository) error {
				cur, err := users.GetByEmailForUpdate(ctx, "a@x.com")
				if err != nil {
					return err
				}
				cur.FullName += "x"
				return users.Update(ctx, cur)
			})
		}()
	}
	wg.Wait()

	got, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, got.FullName, workers, "no lost updates")
}
