package prompt

import (
	"context"

	"github.com/google/uuid"

	domainprompt "github.com/alanyang/promptkit/internal/domain/prompt"
)

// Repository is the storage abstraction for catalogued prompts.
// A nil categoryID scopes a query to uncategorised prompts.
type Repository interface {
	Create(ctx context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error)
	GetByID(ctx context.Context, id uuid.UUID) (domainprompt.Prompt, error)
	List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Prompt, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByFingerprint returns prompts in the category whose fingerprint
	// equals fp exactly, oldest first.
	ListByFingerprint(ctx context.Context, categoryID *uuid.UUID, fp string) ([]domainprompt.Prompt, error)

	// ListByCategory returns up to limit prompts in the category, oldest
	// first. limit <= 0 means no limit.
	ListByCategory(ctx context.Context, categoryID *uuid.UUID, limit int) ([]domainprompt.Prompt, error)
}
