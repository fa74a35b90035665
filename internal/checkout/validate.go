package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/revive-shop/commerce-core/internal/domain"
)

// ErrEmailRequired blocks order creation when no confirmation email was
// entered. Checked client-side, never sent to the server.
var ErrEmailRequired = errors.New("email is required for order confirmation")

// ValidationError lists the address fields that failed field-level checks.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	return fmt.Sprintf("invalid address fields: %s", strings.Join(names, ", "))
}

const minPhoneDigits = 8

// ValidateAddress runs the field-level checks all seven mandatory fields
// must pass before any order-creation call is made. Returns nil when valid.
func ValidateAddress(a domain.Address) *ValidationError {
	fields := map[string]string{}
	if strings.TrimSpace(a.FirstName) == "" {
		fields["firstName"] = "first name is required"
	}
	if strings.TrimSpace(a.LastName) == "" {
		fields["lastName"] = "last name is required"
	}
	if strings.TrimSpace(a.Street) == "" {
		fields["street"] = "street is required"
	}
	if strings.TrimSpace(a.City) == "" {
		fields["city"] = "city is required"
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		fields["postalCode"] = "postal code is required"
	}
	if strings.TrimSpace(a.Country) == "" {
		fields["country"] = "country is required"
	}
	if strings.TrimSpace(a.Phone) == "" {
		fields["phone"] = "phone is required"
	} else if digitCount(a.Phone) < minPhoneDigits {
		fields["phone"] = "phone is invalid"
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ValidateEmail checks the guest confirmation email before order creation.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}
	return nil
}
