package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fisker/salesflow/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindUserByUsername 按用户名查找未删除的用户
func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var users []model.User
	result := r.db.WithContext(ctx).Where("username = ? AND is_deleted = ?", username, false).Limit(1).Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(users) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &users[0], nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("user_id = ? AND is_deleted = ?", id, false).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
