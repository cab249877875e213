package store

import (
	"context"

	"github.com/cognita-labs/cognita/src/shared/types"
)

// Point lookups used by the live listeners to diff an incoming payload
// against known state before updating it.

func (s *Store) GetUser(ctx context.Context, id int64) (*types.User, error) {
	var row types.User
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) GetGuild(ctx context.Context, id int64) (*types.Guild, error) {
	var row types.Guild
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) GetChannel(ctx context.Context, id int64) (*types.Channel, error) {
	var row types.Channel
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	var row types.Category
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) GetThread(ctx context.Context, id int64) (*types.Thread, error) {
	var row types.Thread
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) GetRole(ctx context.Context, id int64) (*types.Role, error) {
	var row types.Role
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
