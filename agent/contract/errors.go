package contract

import "errors"

var (
	// ErrValidation covers malformed tool arguments, unparseable dates and
	// empty inputs. Recoverable within the turn as a tool-result string.
	ErrValidation = errors.New("validation failed")

	// ErrModelInvoke is a provider-level failure (timeout, 5xx). The turn is
	// aborted and the sender gets a generic apology.
	ErrModelInvoke = errors.New("model invoke failed")

	// ErrCalendarNotFound and ErrCalendarUnauthorized are external calendar
	// misconfigurations surfaced as tenant-actionable text.
	ErrCalendarNotFound     = errors.New("calendar not found")
	ErrCalendarUnauthorized = errors.New("calendar not authorized")

	// ErrInsufficientCredits rejects a metered operation before any side effect.
	ErrInsufficientCredits = errors.New("insufficient video credits")

	ErrTenantNotFound      = errors.New("tenant not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSessionNotFound     = errors.New("session not found")
)
