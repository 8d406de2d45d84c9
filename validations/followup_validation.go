package validations

import (
	"context"
	"fmt"

	followupDomain "github.com/AzielCF/az-crm/followup/domain"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateUpdateEventStatus(ctx context.Context, request followupDomain.UpdateEventStatusRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Status, validation.Required, validation.In(
			string(followupDomain.EventCompleted),
			string(followupDomain.EventCancelled),
			string(followupDomain.EventReady),
		)),
		validation.Field(&request.Notes, validation.Length(0, 2000)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateListEvents(ctx context.Context, request followupDomain.ListEventsRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Limit, validation.Min(0), validation.Max(followupDomain.MaxEventListLimit)),
		validation.Field(&request.Assignee, validation.Length(0, 60)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	for _, s := range request.Statuses() {
		if !s.Valid() {
			return pkgError.ValidationError(fmt.Sprintf("status: unknown value %q.", s))
		}
	}
	return nil
}
