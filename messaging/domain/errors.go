package domain

import (
	"errors"
	"strings"
)

var (
	// ErrTemporarilyUnavailable marks transport outages worth retrying later.
	ErrTemporarilyUnavailable = errors.New("transport temporarily unavailable")

	// ErrContactNotFound is returned by a transport that does not know the recipient yet.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvalidRecipient se retorna cuando el destinatario no tiene un formato válido
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrMissingSender se retorna cuando no hay remitente configurado para el canal
	ErrMissingSender = errors.New("no sender identity configured")
)

const transientMarker = "temporarily unavailable"

// IsTransient reports whether err describes a transport that is temporarily
// unavailable. Matching is done on the wrapped sentinel or on the message
// text, since some transports only surface the condition as a string.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTemporarilyUnavailable) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), transientMarker)
}
