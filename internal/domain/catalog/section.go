package catalog

import (
	"time"

	"github.com/shoplink/backend/internal/domain/shared"
)

// SectionStatus represents the status of a catalog section
type SectionStatus string

const (
	SectionStatusActive   SectionStatus = "active"
	SectionStatusInactive SectionStatus = "inactive"
)

// Section represents a category node of the external catalog hierarchy.
// Sections are created and updated only by feed import passes; they are
// deactivated, never deleted.
type Section struct {
	shared.BaseAggregateRoot
	ExternalID       string        `gorm:"type:varchar(64);not null;uniqueIndex:idx_section_external_id"`
	ExternalCode     string        `gorm:"type:varchar(64);index"`
	Name             string        `gorm:"type:varchar(255);not null"`
	ParentExternalID *string       `gorm:"type:varchar(64);index"`
	Metadata         AttributeMap  `gorm:"type:jsonb"`
	Status           SectionStatus `gorm:"type:varchar(20);not null;default:'active'"`
	SyncStatus       string        `gorm:"type:varchar(50)"`
	SyncedAt         *time.Time
}

// TableName returns the table name for GORM
func (Section) TableName() string {
	return "sections"
}

// NewSection creates a new section from feed data
func NewSection(externalID, name string) (*Section, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "Section external ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Section name cannot be empty")
	}

	section := &Section{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ExternalID:        externalID,
		Name:              name,
		Metadata:          AttributeMap{},
		Status:            SectionStatusActive,
	}

	section.AddDomainEvent(NewSectionCreatedEvent(section))

	return section, nil
}

// Update updates the section's name and external code
func (s *Section) Update(name, externalCode string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Section name cannot be empty")
	}

	s.Name = name
	if externalCode != "" {
		s.ExternalCode = externalCode
	}
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// SetParent records the parent section reference. The null-GUID sentinel and
// the empty string both mean "root section".
func (s *Section) SetParent(parentExternalID string) {
	if parentExternalID == "" || parentExternalID == NullGUID {
		s.ParentExternalID = nil
	} else {
		ref := parentExternalID
		s.ParentExternalID = &ref
	}
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// SetMetadata replaces the free-form metadata blob
func (s *Section) SetMetadata(metadata AttributeMap) {
	if metadata == nil {
		metadata = AttributeMap{}
	}
	s.Metadata = metadata
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// MarkSynced records the outcome of the sync pass that touched this section
func (s *Section) MarkSynced(status string) {
	now := time.Now()
	s.SyncStatus = status
	s.SyncedAt = &now
	s.UpdatedAt = now
}

// Activate activates the section
func (s *Section) Activate() {
	if s.Status == SectionStatusActive {
		return
	}
	s.Status = SectionStatusActive
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// Deactivate deactivates the section
func (s *Section) Deactivate() {
	if s.Status == SectionStatusInactive {
		return
	}
	s.Status = SectionStatusInactive
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// IsActive returns true if the section is active
func (s *Section) IsActive() bool {
	return s.Status == SectionStatusActive
}

// IsRoot returns true if the section has no parent
func (s *Section) IsRoot() bool {
	return s.ParentExternalID == nil
}
