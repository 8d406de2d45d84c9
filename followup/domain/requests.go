package domain

import "strings"

// UpdateEventStatusRequest is the operator override body.
type UpdateEventStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

// ListEventsRequest carries the raw list query: status is a comma separated set.
type ListEventsRequest struct {
	Status   string `query:"status"`
	Assignee string `query:"assignee"`
	Limit    int    `query:"limit"`
}

// Statuses splits the status query ("SCHEDULED,READY"), upper-casing each entry.
func (r ListEventsRequest) Statuses() []EventStatus {
	var out []EventStatus
	for _, part := range strings.Split(r.Status, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, EventStatus(part))
		}
	}
	return out
}

// Filter converts the query into a store filter.
func (r ListEventsRequest) Filter() EventFilter {
	return EventFilter{
		Statuses: r.Statuses(),
		Assignee: strings.ToUpper(strings.TrimSpace(r.Assignee)),
		Limit:    r.Limit,
	}
}
