package breweries

import "fmt"

// LoaderError classifies why a load failed. The set is closed: ErrClientError and ErrInvalidData.
type LoaderError int

const (
	// ErrClientError means the fetch itself did not complete (network, timeout, cancelled context).
	ErrClientError LoaderError = iota + 1
	// ErrInvalidData means the fetch completed but the payload can't be trusted.
	ErrInvalidData
)

func (e LoaderError) Error() string {
	switch e {
	case ErrClientError:
		return "brewery loader: client error"
	case ErrInvalidData:
		return "brewery loader: invalid data"
	default:
		return fmt.Sprintf("brewery loader: unknown error (%d)", int(e))
	}
}

// String returns the short kind name, used as a metrics label.
func (e LoaderError) String() string {
	switch e {
	case ErrClientError:
		return "client_error"
	case ErrInvalidData:
		return "invalid_data"
	default:
		return "unknown"
	}
}
