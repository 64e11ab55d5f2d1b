package catalog

import "github.com/shoplink/backend/internal/domain/shared"

// Section event types
const (
	EventTypeSectionCreated = "catalog.section.created"
)

// SectionCreatedEvent is raised when a new section is created
type SectionCreatedEvent struct {
	shared.BaseDomainEvent
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

// NewSectionCreatedEvent creates a new section created event
func NewSectionCreatedEvent(section *Section) *SectionCreatedEvent {
	return &SectionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSectionCreated, "Section", section.ID),
		ExternalID:      section.ExternalID,
		Name:            section.Name,
	}
}
