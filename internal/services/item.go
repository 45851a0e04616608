package services

import (
	"context"
	"strings"

	"github.com/charismamove/apiserver/types"
)

// ItemRepository defines persistence operations for catalogue items.
type ItemRepository interface {
	Search(ctx context.Context, term string) ([]types.Item, error)
	Create(ctx context.Context, name string) (types.Item, error)
	Count(ctx context.Context) (int, error)
}

type ItemService struct {
	repo ItemRepository
}

func NewItemService(repo ItemRepository) *ItemService {
	return &ItemService{repo: repo}
}

func (s *ItemService) Search(ctx context.Context, term string) ([]types.Item, error) {
	return s.repo.Search(ctx, term)
}

func (s *ItemService) Create(ctx context.Context, name string) (types.Item, error) {
	return s.repo.Create(ctx, strings.TrimSpace(name))
}
