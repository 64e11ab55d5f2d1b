package catalog

import (
	"context"

	"github.com/shoplink/backend/internal/domain/catalog"
)

// SectionService answers section queries
type SectionService struct {
	sectionRepo catalog.SectionRepository
}

// NewSectionService creates a new SectionService
func NewSectionService(sectionRepo catalog.SectionRepository) *SectionService {
	return &SectionService{sectionRepo: sectionRepo}
}

// List returns all active sections
func (s *SectionService) List(ctx context.Context) ([]SectionResponse, error) {
	sections, err := s.sectionRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]SectionResponse, 0, len(sections))
	for i := range sections {
		responses = append(responses, ToSectionResponse(&sections[i]))
	}
	return responses, nil
}

// Children returns the active child sections of a parent
func (s *SectionService) Children(ctx context.Context, parentExternalID string) ([]SectionResponse, error) {
	sections, err := s.sectionRepo.FindChildren(ctx, parentExternalID)
	if err != nil {
		return nil, err
	}

	responses := make([]SectionResponse, 0, len(sections))
	for i := range sections {
		responses = append(responses, ToSectionResponse(&sections[i]))
	}
	return responses, nil
}
