package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carrental/internal/cache"
	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

// CategoryService handles rental categories, the source of daily rates.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	CreateCategory(ctx context.Context, name string, dailyRate int) (*model.Category, error)
	UpdateCategoryName(ctx context.Context, id uuid.UUID, name string) (*model.Category, error)
	UpdateCategoryRate(ctx context.Context, id uuid.UUID, dailyRate int) (*model.Category, error)
	// CategoriesByID indexes the cached category list for view enrichment.
	CategoriesByID(ctx context.Context) (map[uuid.UUID]model.Category, error)
	InvalidateCache(ctx context.Context)
}

type categoryService struct {
	store repository.Store
	cache *cache.Collection[model.Category]
	log   zerolog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(store repository.Store, client *cache.Client, policy cache.Policy, log zerolog.Logger) CategoryService {
	return &categoryService{
		store: store,
		cache: cache.NewCollection[model.Category](client, cache.KeyCategories, policy, log),
		log:   log.With().Str("service", "category").Logger(),
	}
}

func (s *categoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.cache.ReadThrough(ctx, s.store.Categories().List)
}

func (s *categoryService) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.store.Categories().FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, name string, dailyRate int) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("category name is required")
	}
	if dailyRate < 0 {
		return nil, errors.Validation("daily rate must not be negative")
	}

	category := &model.Category{Name: name, DailyRate: dailyRate}
	if err := s.store.Categories().Create(ctx, category); err != nil {
		return nil, errors.Persistence("error creating category", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("category_id", category.ID.String()).Str("name", name).Msg("category created")
	return category, nil
}

func (s *categoryService) UpdateCategoryName(ctx context.Context, id uuid.UUID, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("category name is required")
	}
	return s.update(ctx, id, func(c *model.Category) { c.Name = name })
}

func (s *categoryService) UpdateCategoryRate(ctx context.Context, id uuid.UUID, dailyRate int) (*model.Category, error) {
	if dailyRate < 0 {
		return nil, errors.Validation("daily rate must not be negative")
	}
	return s.update(ctx, id, func(c *model.Category) { c.DailyRate = dailyRate })
}

func (s *categoryService) update(ctx context.Context, id uuid.UUID, mutate func(*model.Category)) (*model.Category, error) {
	var updated *model.Category
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		category, err := tx.Categories().FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return errors.ErrCategoryNotFound
			}
			return err
		}
		mutate(category)
		if err := tx.Categories().Update(ctx, category); err != nil {
			return err
		}
		updated = category
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("error updating category", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("category_id", id.String()).Msg("category updated")
	return updated, nil
}

func (s *categoryService) CategoriesByID(ctx context.Context) (map[uuid.UUID]model.Category, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return byID, nil
}

func (s *categoryService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx)
}
