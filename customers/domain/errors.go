package domain

import "errors"

var (
	// ErrCustomerNotFound se retorna cuando no se encuentra un cliente
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrInvalidStatus se retorna cuando el estado no es uno de los conocidos
	ErrInvalidStatus = errors.New("invalid customer status")
)
