package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
	"github.com/alanyang/promptkit/internal/domain/event"
	portcategory "github.com/alanyang/promptkit/internal/port/category"
	portbus "github.com/alanyang/promptkit/internal/port/eventbus"
)

var ErrNameRequired = errors.New("category name is required")

type Service struct {
	repo portcategory.Repository
	bus  portbus.EventBus
}

func NewService(repo portcategory.Repository, bus portbus.EventBus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) Create(ctx context.Context, name, description string) (domaincategory.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domaincategory.Category{}, ErrNameRequired
	}

	created, err := s.repo.Create(ctx, domaincategory.New(name, strings.TrimSpace(description)))
	if err != nil {
		return domaincategory.Category{}, fmt.Errorf("create category: %w", err)
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeCategoryCreated, created.ID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish CategoryCreated event", "category_id", created.ID, "error", err)
	}
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (domaincategory.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domaincategory.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]domaincategory.Category, error) {
	cs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cs, nil
}
