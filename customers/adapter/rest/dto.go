package rest

import (
	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	followupDomain "github.com/AzielCF/az-crm/followup/domain"
)

// CustomerFollowUps agrupa las tareas y eventos de un cliente
type CustomerFollowUps struct {
	Customer *customerDomain.Customer `json:"customer"`
	Tasks    []*followupDomain.Task   `json:"tasks"`
	Events   []*followupDomain.Event  `json:"events"`
}

type listCustomersQuery struct {
	Status     string `query:"status"`
	AssignedTo string `query:"assigned_to"`
	Search     string `query:"search"`
	Limit      int    `query:"limit"`
	Offset     int    `query:"offset"`
}

func (q listCustomersQuery) filter() customerDomain.CustomerFilter {
	filter := customerDomain.CustomerFilter{
		AssignedTo: q.AssignedTo,
		Search:     q.Search,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if q.Status != "" {
		s := customerDomain.CustomerStatus(q.Status)
		filter.Status = &s
	}
	return filter
}
