package validations

import (
	"context"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func customerStatuses() []any {
	out := make([]any, 0, len(customerDomain.AllStatuses))
	for _, s := range customerDomain.AllStatuses {
		out = append(out, string(s))
	}
	return out
}

func ValidateCreateCustomer(ctx context.Context, request customerDomain.CreateCustomerRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.FirstName, validation.Required, validation.Length(1, 120)),
		validation.Field(&request.LastName, validation.Length(0, 120)),
		validation.Field(&request.Phone, validation.Length(0, 40)),
		validation.Field(&request.Email, is.EmailFormat),
		validation.Field(&request.AssignedTo, validation.Length(0, 60)),
		validation.Field(&request.Status, validation.In(customerStatuses()...)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateUpdateCustomer(ctx context.Context, request customerDomain.UpdateCustomerRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.FirstName, validation.NilOrNotEmpty, validation.Length(1, 120)),
		validation.Field(&request.LastName, validation.Length(0, 120)),
		validation.Field(&request.Phone, validation.Length(0, 40)),
		validation.Field(&request.Email, is.EmailFormat),
		validation.Field(&request.AssignedTo, validation.Length(0, 60)),
		validation.Field(&request.Status, validation.NilOrNotEmpty, validation.In(customerStatuses()...)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
