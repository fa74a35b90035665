package api

import "errors"

var (
	// ErrUnreachable marks connectivity failures: the backend could not be
	// reached at all. Reported as a single user-facing message and never
	// retried automatically.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrNotFound marks lookups with no match. Kept distinct from
	// connectivity errors so "order not found" is never conflated with
	// "backend down".
	ErrNotFound = errors.New("not found")
)

// DomainError carries a server-side rejection (coupon invalid, out of stock,
// payment refused). The message is surfaced to the user verbatim.
type DomainError struct {
	Message    string
	StatusCode int
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainRejection reports whether err is a server-side rejection rather
// than a transport or not-found failure.
func IsDomainRejection(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
