package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypePromptImported  Type = "prompt_imported"
	TypePromptDeleted   Type = "prompt_deleted"
	TypeDuplicatesFound Type = "duplicates_found"
	TypeCategoryCreated Type = "category_created"
)

// Channel is a domain-scoped Postgres NOTIFY channel.
// All event types within a domain share one LISTEN connection.
type Channel string

const (
	ChannelPrompt   Channel = "prompt"
	ChannelCategory Channel = "category"
)

var typeToChannel = map[Type]Channel{
	TypePromptImported:  ChannelPrompt,
	TypePromptDeleted:   ChannelPrompt,
	TypeDuplicatesFound: ChannelPrompt,
	TypeCategoryCreated: ChannelCategory,
}

// ChannelFor returns the domain channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event carries identifiers only, not full state.
// Subscribers fetch fresh state from the appropriate repository.
type Event struct {
	Type       Type        `json:"type"`
	EntityID   uuid.UUID   `json:"entity_id"`
	CategoryID *uuid.UUID  `json:"category_id,omitempty"`
	RelatedIDs []uuid.UUID `json:"related_ids,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

func New(eventType Type, entityID uuid.UUID) Event {
	return Event{
		Type:      eventType,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// WithCategory scopes the event to a category.
func (e Event) WithCategory(id *uuid.UUID) Event {
	e.CategoryID = id
	return e
}

// WithRelated attaches the ids of other entities involved, such as the
// members of a duplicate group.
func (e Event) WithRelated(ids ...uuid.UUID) Event {
	e.RelatedIDs = ids
	return e
}
