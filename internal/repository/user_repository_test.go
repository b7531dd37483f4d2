package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fisker/salesflow/internal/model"
)

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	s := seed{db: db, t: t}
	s.user(1, "alice", "Alice Chen")
	s.user(2, "bob", "")
	require.NoError(t, db.Model(&model.User{}).Where("user_id = ?", 2).Update("is_deleted", true).Error)

	repo := NewUserRepository(db)
	ctx := context.Background()

	user, err := repo.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.UserID)

	user, err = repo.FindUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice Chen", user.FullName)

	_, err = repo.FindUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindUserByID(ctx, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
