package category

import (
	"context"

	"github.com/google/uuid"

	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
)

// Repository manages category persistence.
type Repository interface {
	Create(ctx context.Context, c domaincategory.Category) (domaincategory.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (domaincategory.Category, error)
	List(ctx context.Context) ([]domaincategory.Category, error)
}
