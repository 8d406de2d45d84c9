package application

import (
	"strings"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
)

// ResolvedContact is the delivery option picked for a customer.
type ResolvedContact struct {
	Value       string
	Channel     messagingDomain.ChannelKind
	OptionIndex int
}

// PhoneNormalizer turns locally written numbers into E.164 for one home country.
type PhoneNormalizer struct {
	CountryCode  string // "54"
	MobilePrefix string // "9"
}

// Normalize returns the E.164 form of raw or false when it is too short.
func (n PhoneNormalizer) Normalize(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	digits = strings.TrimPrefix(digits, "+")
	digits = strings.TrimPrefix(digits, "00")
	digits = strings.TrimPrefix(digits, "0")

	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	// Numbers already carrying the country code (with or without the
	// mobile prefix) only need the plus sign; too short ones are rejected.
	switch {
	case strings.HasPrefix(digits, n.CountryCode):
		if len(digits) >= len(n.CountryCode)+9 {
			return "+" + digits, true
		}
	case len(digits) >= 10:
		return "+" + n.CountryCode + n.MobilePrefix + digits, true
	}
	return "", false
}

// ContactResolver picks the first delivery option the customer can be reached by.
type ContactResolver struct {
	phones PhoneNormalizer
}

func NewContactResolver(phones PhoneNormalizer) *ContactResolver {
	if phones.CountryCode == "" {
		phones.CountryCode = "54"
	}
	return &ContactResolver{phones: phones}
}

// Resolve tries options in order. ok is false when none resolves.
func (r *ContactResolver) Resolve(customer customerDomain.Customer, options []domain.DeliveryOption) (ResolvedContact, bool) {
	for i, opt := range options {
		if value, ok := r.contactValue(customer, opt.Preference); ok {
			return ResolvedContact{Value: value, Channel: opt.Channel, OptionIndex: i}, true
		}
	}
	return ResolvedContact{}, false
}

func (r *ContactResolver) contactValue(customer customerDomain.Customer, pref domain.ContactPreference) (string, bool) {
	switch pref {
	case domain.ContactPhone:
		return r.phones.Normalize(customer.Phone)
	case domain.ContactEmail:
		email := strings.TrimSpace(customer.Email)
		return email, email != ""
	}
	return "", false
}
