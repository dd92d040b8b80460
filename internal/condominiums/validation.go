package condominiums

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/neighbora/neighbora-api/internal/shared"
)

func validate(c *Condominium) error {
	var problems []string
	if strings.TrimSpace(c.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(c.Address) == "" {
		problems = append(problems, "address is required")
	}
	if strings.TrimSpace(c.City) == "" {
		problems = append(problems, "city is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		problems = append(problems, "region is required")
	}
	if c.TotalUnits < 1 {
		problems = append(problems, "totalUnits must be at least 1")
	}
	switch c.Type {
	case TypeResidential, TypeCommercial, TypeMixed:
	default:
		problems = append(problems, fmt.Sprintf("type must be one of [%s %s %s]", TypeResidential, TypeCommercial, TypeMixed))
	}
	problems = append(problems, validateSettings(c.Settings)...)
	if c.Contact.Email != "" {
		if _, err := mail.ParseAddress(c.Contact.Email); err != nil {
			problems = append(problems, "contact.email must be a valid email")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

func validateSettings(s Settings) []string {
	var problems []string
	if s.BillingCutoffDay < 1 || s.BillingCutoffDay > 28 {
		problems = append(problems, "settings.billingCutoffDay must be between 1 and 28")
	}
	if s.PaymentDueDays < 1 {
		problems = append(problems, "settings.paymentDueDays must be at least 1")
	}
	if _, err := currency.ParseISO(s.Currency); err != nil {
		problems = append(problems, fmt.Sprintf("settings.currency %q is not an ISO 4217 code", s.Currency))
	}
	if _, err := language.Parse(s.Language); err != nil {
		problems = append(problems, fmt.Sprintf("settings.language %q is not a valid language tag", s.Language))
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		problems = append(problems, fmt.Sprintf("settings.timezone %q is not a known time zone", s.Timezone))
	}
	return problems
}

// mergeSettings overlays the non-zero fields of in onto base.
func mergeSettings(base Settings, in Settings) Settings {
	if in.BillingCutoffDay != 0 {
		base.BillingCutoffDay = in.BillingCutoffDay
	}
	if in.PaymentDueDays != 0 {
		base.PaymentDueDays = in.PaymentDueDays
	}
	if in.Currency != "" {
		base.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	}
	if in.Timezone != "" {
		base.Timezone = strings.TrimSpace(in.Timezone)
	}
	if in.Language != "" {
		base.Language = strings.TrimSpace(in.Language)
	}
	return base
}

// apply writes the non-nil fields of in onto c.
func apply(c *Condominium, in Input) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		c.Address = strings.TrimSpace(*in.Address)
	}
	if in.City != nil {
		c.City = strings.TrimSpace(*in.City)
	}
	if in.Region != nil {
		c.Region = strings.TrimSpace(*in.Region)
	}
	if in.Country != nil {
		c.Country = strings.TrimSpace(*in.Country)
	}
	if in.TotalUnits != nil {
		c.TotalUnits = *in.TotalUnits
	}
	if in.Type != nil {
		c.Type = strings.TrimSpace(*in.Type)
	}
	if in.Settings != nil {
		c.Settings = mergeSettings(c.Settings, *in.Settings)
	}
	if in.Contact != nil {
		c.Contact = *in.Contact
		c.Contact.Email = strings.ToLower(strings.TrimSpace(c.Contact.Email))
	}
	if in.Management != nil {
		c.Management = *in.Management
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}
