package properties

import (
	"fmt"
	"strings"

	"github.com/neighbora/neighbora-api/internal/shared"
)

func validate(p *Property) error {
	var problems []string
	if strings.TrimSpace(p.Number) == "" {
		problems = append(problems, "number is required")
	}
	switch p.Type {
	case TypeApartment, TypeHouse, TypeCommercial, TypeStorage, TypeParking:
	default:
		problems = append(problems, fmt.Sprintf("type must be one of [%s %s %s %s %s]",
			TypeApartment, TypeHouse, TypeCommercial, TypeStorage, TypeParking))
	}
	if pct := p.FinancialSettings.CommonExpensePercentage; pct < 0 || pct > 100 {
		problems = append(problems, "financialSettings.commonExpensePercentage must be between 0 and 100")
	}
	if p.Owner != nil && (p.Owner.Name == "" || p.Owner.Email == "") {
		problems = append(problems, "owner requires name and email")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// apply writes the non-nil fields of in onto p.
func apply(p *Property, in Input) {
	if in.Number != nil {
		p.Number = strings.TrimSpace(*in.Number)
	}
	if in.Floor != nil {
		p.Floor = in.Floor
	}
	if in.Block != nil {
		p.Block = strings.TrimSpace(*in.Block)
	}
	if in.Type != nil {
		p.Type = *in.Type
	}
	if in.SquareMeters != nil {
		p.SquareMeters = in.SquareMeters
	}
	if in.Bedrooms != nil {
		p.Bedrooms = in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = in.Bathrooms
	}
	if in.Owner != nil {
		owner := *in.Owner
		owner.Name = strings.TrimSpace(owner.Name)
		owner.Email = normalizeEmail(owner.Email)
		p.Owner = &owner
	}
	if in.FinancialSettings != nil {
		p.FinancialSettings = *in.FinancialSettings
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}
