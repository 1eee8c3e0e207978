package store

import (
	"context"

	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	return loadAll[models.User](ctx, s.driver, Users)
}

func (s *Store) SaveUsers(ctx context.Context, users []models.User) error {
	return saveAll(ctx, s.driver, Users, users)
}

// FindUser returns the first user whose username and password both match
// exactly, or nil.
func (s *Store) FindUser(ctx context.Context, username, password string) (*models.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username && users[i].Password == password {
			return &users[i], nil
		}
	}
	return nil, nil
}

// AppendUser does not check for an existing username.
func (s *Store) AppendUser(ctx context.Context, user models.User) error {
	return appendRecord(ctx, s.driver, Users, user)
}

// DeleteUserAt removes the user at position index. Out of range is a no-op.
func (s *Store) DeleteUserAt(ctx context.Context, index int) (bool, error) {
	return removeRecordAt(ctx, s.driver, Users, index)
}
