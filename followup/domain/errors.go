package domain

import "errors"

var (
	// ErrTaskNotFound se retorna cuando no se encuentra una tarea de seguimiento
	ErrTaskNotFound = errors.New("follow-up task not found")

	// ErrEventNotFound se retorna cuando no se encuentra un evento de seguimiento
	ErrEventNotFound = errors.New("follow-up event not found")

	// ErrDuplicateRule se retorna cuando hay más de una regla para el mismo estado
	ErrDuplicateRule = errors.New("duplicate follow-up rule for status")

	// ErrInvalidEventStatus se retorna cuando el estado pedido no es aplicable manualmente
	ErrInvalidEventStatus = errors.New("invalid follow-up event status")

	// ErrStaleTransition is returned when a conditional update matched no row.
	ErrStaleTransition = errors.New("follow-up record changed concurrently")
)
