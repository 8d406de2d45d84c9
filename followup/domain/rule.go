package domain

import (
	"fmt"
	"time"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
)

// DeliveryOption is one acceptable way to reach a customer.
type DeliveryOption struct {
	Channel    messagingDomain.ChannelKind `json:"channel"`
	Preference ContactPreference           `json:"contact_preference"`
}

// FollowUpRule says what to do, and when, after a customer enters a status.
type FollowUpRule struct {
	TriggerStatus   customerDomain.CustomerStatus
	Delay           time.Duration
	TemplateID      TemplateID
	DeliveryOptions []DeliveryOption
}

// RuleTable is an immutable status -> rule lookup built once at startup.
type RuleTable struct {
	rules map[customerDomain.CustomerStatus]FollowUpRule
}

// NewRuleTable rejects more than one rule per status.
func NewRuleTable(rules ...FollowUpRule) (*RuleTable, error) {
	t := &RuleTable{rules: make(map[customerDomain.CustomerStatus]FollowUpRule, len(rules))}
	for _, r := range rules {
		if r.TriggerStatus == "" {
			return nil, fmt.Errorf("rule for template %s has no trigger status", r.TemplateID)
		}
		if _, dup := t.rules[r.TriggerStatus]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.TriggerStatus)
		}
		for _, opt := range r.DeliveryOptions {
			if !opt.Channel.Valid() {
				return nil, fmt.Errorf("rule %s: unknown channel %q", r.TriggerStatus, opt.Channel)
			}
			if opt.Preference != ContactPhone && opt.Preference != ContactEmail {
				return nil, fmt.Errorf("rule %s: unknown contact preference %q", r.TriggerStatus, opt.Preference)
			}
		}
		r.DeliveryOptions = append([]DeliveryOption(nil), r.DeliveryOptions...)
		t.rules[r.TriggerStatus] = r
	}
	return t, nil
}

// Rule returns the rule for status. The returned delivery options are a copy.
func (t *RuleTable) Rule(status customerDomain.CustomerStatus) (FollowUpRule, bool) {
	if t == nil {
		return FollowUpRule{}, false
	}
	r, ok := t.rules[status]
	if !ok {
		return FollowUpRule{}, false
	}
	r.DeliveryOptions = append([]DeliveryOption(nil), r.DeliveryOptions...)
	return r, true
}

// Len returns the number of rules.
func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// DefaultRules returns the stock rules with options as delivery list.
func DefaultRules(options []DeliveryOption) []FollowUpRule {
	return []FollowUpRule{
		{
			TriggerStatus:   customerDomain.StatusNoAnswer,
			Delay:           24 * time.Hour,
			TemplateID:      TemplateNoResponse24h,
			DeliveryOptions: options,
		},
		{
			TriggerStatus:   customerDomain.StatusQuotedPending,
			Delay:           48 * time.Hour,
			TemplateID:      TemplateQuotePending48h,
			DeliveryOptions: options,
		},
		{
			TriggerStatus:   customerDomain.StatusPurchased,
			Delay:           14 * 24 * time.Hour,
			TemplateID:      TemplateSatisfaction14d,
			DeliveryOptions: options,
		},
	}
}

// DeliveryOptionsFor derives the ordered delivery list from active channels:
// chat by phone first, customer email second.
func DeliveryOptionsFor(chatEnabled, emailEnabled bool) []DeliveryOption {
	var out []DeliveryOption
	if chatEnabled {
		out = append(out, DeliveryOption{Channel: messagingDomain.ChannelWhatsAppAPI, Preference: ContactPhone})
	}
	if emailEnabled {
		out = append(out, DeliveryOption{Channel: messagingDomain.ChannelInternalEmail, Preference: ContactEmail})
	}
	return out
}
