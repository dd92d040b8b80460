// Package residents exposes the residents embedded in properties as a
// condominium-wide directory.
package residents

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/neighbora/neighbora-api/internal/properties"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// Status filters for directory listings.
const (
	StatusActive = "active"
	StatusAll    = "all"
)

// Entry is a resident together with the unit it belongs to.
type Entry struct {
	properties.Resident
	PropertyID     primitive.ObjectID `json:"propertyId"`
	PropertyNumber string             `json:"propertyNumber"`
	PropertyBlock  string             `json:"propertyBlock,omitempty"`
	PropertyType   string             `json:"propertyType"`
}

// Page is one page of a directory listing.
type Page struct {
	Residents  []Entry           `json:"residents"`
	Pagination shared.Pagination `json:"pagination"`
}

// Stats summarises the residents of a condominium.
type Stats struct {
	TotalResidents    int            `json:"totalResidents"`
	ActiveResidents   int            `json:"activeResidents"`
	InactiveResidents int            `json:"inactiveResidents"`
	ByRelationship    map[string]int `json:"byRelationship"`
	TotalProperties   int            `json:"totalProperties"`
}

// PropertyResidents lists the residents of a single unit.
type PropertyResidents struct {
	Residents      []properties.Resident `json:"residents"`
	PropertyNumber string                `json:"propertyNumber"`
	PropertyBlock  string                `json:"propertyBlock,omitempty"`
}

type Service struct {
	properties *properties.Service
}

func NewService(props *properties.Service) *Service {
	return &Service{properties: props}
}

// List flattens the residents of every active unit and paginates the result.
func (s *Service) List(ctx context.Context, condominiumID, status string, page shared.PageRequest) (*Page, error) {
	if status == "" {
		status = StatusActive
	}
	if status != StatusActive && status != StatusAll {
		return nil, fmt.Errorf("%w: status must be one of [%s %s]", shared.ErrValidation, StatusActive, StatusAll)
	}
	props, err := s.properties.ListByCondominium(ctx, condominiumID)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, p := range props {
		for _, r := range p.Residents {
			if status == StatusActive && !r.IsActive {
				continue
			}
			entries = append(entries, Entry{
				Resident:       r,
				PropertyID:     p.ID,
				PropertyNumber: p.Number,
				PropertyBlock:  p.Block,
				PropertyType:   p.Type,
			})
		}
	}
	total := len(entries)
	start := min(int(page.Skip()), total)
	end := min(start+int(page.Limit()), total)
	out := append([]Entry{}, entries[start:end]...)
	return &Page{Residents: out, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

func (s *Service) Stats(ctx context.Context, condominiumID string) (*Stats, error) {
	props, err := s.properties.ListByCondominium(ctx, condominiumID)
	if err != nil {
		return nil, err
	}
	stats := &Stats{ByRelationship: map[string]int{}, TotalProperties: len(props)}
	for _, p := range props {
		for _, r := range p.Residents {
			stats.TotalResidents++
			if r.IsActive {
				stats.ActiveResidents++
			}
			stats.ByRelationship[r.Relationship]++
		}
	}
	stats.InactiveResidents = stats.TotalResidents - stats.ActiveResidents
	return stats, nil
}

func (s *Service) ForProperty(ctx context.Context, propertyID string) (*PropertyResidents, error) {
	p, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	residents := p.Residents
	if residents == nil {
		residents = []properties.Resident{}
	}
	return &PropertyResidents{Residents: residents, PropertyNumber: p.Number, PropertyBlock: p.Block}, nil
}

func (s *Service) Add(ctx context.Context, propertyID string, in properties.ResidentInput) ([]properties.Resident, error) {
	p, err := s.properties.AddResident(ctx, propertyID, in)
	if err != nil {
		return nil, err
	}
	return p.Residents, nil
}

func (s *Service) Update(ctx context.Context, propertyID, email string, patch properties.ResidentPatch) ([]properties.Resident, error) {
	p, err := s.properties.UpdateResident(ctx, propertyID, email, patch)
	if err != nil {
		return nil, err
	}
	return p.Residents, nil
}

func (s *Service) Remove(ctx context.Context, propertyID, email string) ([]properties.Resident, error) {
	p, err := s.properties.RemoveResident(ctx, propertyID, email)
	if err != nil {
		return nil, err
	}
	if p.Residents == nil {
		return []properties.Resident{}, nil
	}
	return p.Residents, nil
}
