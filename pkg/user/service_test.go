package user

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shareit/pkg/apperr"
	"shareit/pkg/database"
	"shareit/pkg/models"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	return NewService(db)
}

func strPtr(s string) *string { return &s }

func TestCreateAndGet(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	created, err := s.Create(ctx, models.UserInput{Name: strPtr("Test"), Email: strPtr("Test@Mail.ru")})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "test@mail.ru", created.Email)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateValidation(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   models.UserInput
	}{
		{"missing name", models.UserInput{Email: strPtr("a@b.com")}},
		{"blank name", models.UserInput{Name: strPtr("  "), Email: strPtr("a@b.com")}},
		{"missing email", models.UserInput{Name: strPtr("X")}},
		{"bad email", models.UserInput{Name: strPtr("X"), Email: strPtr("not-an-email")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.in)
			assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
		})
	}
}

func TestDuplicateEmailConflicts(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	first, err := s.Create(ctx, models.UserInput{Name: strPtr("A"), Email: strPtr("a@b.com")})
	require.NoError(t, err)
	second, err := s.Create(ctx, models.UserInput{Name: strPtr("B"), Email: strPtr("b@b.com")})
	require.NoError(t, err)

	_, err = s.Create(ctx, models.UserInput{Name: strPtr("C"), Email: strPtr("A@B.com")})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = s.Update(ctx, second.ID, models.UserInput{Email: strPtr("a@b.com")})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// keeping your own email is not a conflict
	updated, err := s.Update(ctx, first.ID, models.UserInput{Email: strPtr("a@b.com")})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", updated.Email)
}

func TestConcurrentSignupsWithSameEmail(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Create(ctx, models.UserInput{Name: strPtr(fmt.Sprint("user", i)), Email: strPtr("same@b.com")})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), err.Error())
	}
	assert.Equal(t, 1, ok)
}

func TestDuplicateEmailIsTranslated(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	require.NoError(t, s.db.Create(&models.User{Name: "A", Email: "a@b.com"}).Error)

	err := s.db.WithContext(ctx).Create(&models.User{Name: "B", Email: "a@b.com"}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPartialUpdate(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	u, err := s.Create(ctx, models.UserInput{Name: strPtr("Old"), Email: strPtr("old@b.com")})
	require.NoError(t, err)

	updated, err := s.Update(ctx, u.ID, models.UserInput{Name: strPtr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "old@b.com", updated.Email)

	_, err = s.Update(ctx, 999, models.UserInput{Name: strPtr("Nobody")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListAndDelete(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, models.UserInput{Name: strPtr("A"), Email: strPtr("a@b.com")})
	require.NoError(t, err)
	_, err = s.Create(ctx, models.UserInput{Name: strPtr("B"), Email: strPtr("b@b.com")})
	require.NoError(t, err)

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, s.Delete(ctx, a.ID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(s.Delete(ctx, a.ID)))

	users, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
