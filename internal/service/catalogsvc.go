package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"forkfast/internal/domain"
)

type FoodsStore interface {
	CreateFood(ctx context.Context, f domain.Food) (domain.Food, error)
	GetFood(ctx context.Context, id string) (domain.Food, error)
	ListFoods(ctx context.Context, page, limit int) ([]domain.Food, int, error)
	UpdateFood(ctx context.Context, f domain.Food) (domain.Food, error)
	DeleteFood(ctx context.Context, id string) error
}

type CategoriesStore interface {
	CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	GetCategory(ctx context.Context, id string) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

const (
	defaultFoodPageLimit = 20
	maxFoodPageLimit     = 100
)

// CatalogService manages the menu: food items and their categories. All
// writes come through the admin surface; reads are public.
type CatalogService struct {
	Foods      FoodsStore
	Categories CategoriesStore
}

func validateFood(f domain.Food) error {
	fields := map[string]string{}
	if strings.TrimSpace(f.Name) == "" {
		fields["name"] = "required"
	}
	if strings.TrimSpace(f.Category) == "" {
		fields["category"] = "required"
	}
	if f.Price.LessThanOrEqual(decimal.Zero) {
		fields["price"] = "must be greater than zero"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}

func (s *CatalogService) AddFood(ctx context.Context, f domain.Food) (domain.Food, error) {
	if err := validateFood(f); err != nil {
		return domain.Food{}, err
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Category = strings.TrimSpace(f.Category)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Foods.CreateFood(ctx, f)
}

func (s *CatalogService) GetFood(ctx context.Context, id string) (domain.Food, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Foods.GetFood(ctx, id)
}

type FoodPage struct {
	Foods []domain.Food
	Page  int
	Limit int
	Total int
}

// ListFoods pages through the menu, newest first. Out-of-range paging inputs
// are clamped rather than rejected.
func (s *CatalogService) ListFoods(ctx context.Context, page, limit int) (FoodPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultFoodPageLimit
	}
	if limit > maxFoodPageLimit {
		limit = maxFoodPageLimit
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	foods, total, err := s.Foods.ListFoods(ctx, page, limit)
	if err != nil {
		return FoodPage{}, err
	}
	return FoodPage{Foods: foods, Page: page, Limit: limit, Total: total}, nil
}

func (s *CatalogService) UpdateFood(ctx context.Context, f domain.Food) (domain.Food, error) {
	if err := validateFood(f); err != nil {
		return domain.Food{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Foods.UpdateFood(ctx, f)
}

func (s *CatalogService) RemoveFood(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Foods.DeleteFood(ctx, id)
}

func (s *CatalogService) AddCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Category{}, domain.NewValidationError(map[string]string{"name": "required"})
	}
	c.Name = strings.TrimSpace(c.Name)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Categories.CreateCategory(ctx, c)
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Categories.GetCategory(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Categories.ListCategories(ctx)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Category{}, domain.NewValidationError(map[string]string{"name": "required"})
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Categories.UpdateCategory(ctx, c)
}

func (s *CatalogService) RemoveCategory(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return s.Categories.DeleteCategory(ctx, id)
}
