package weather

import "errors"

// Configuration and resolution errors.
var (
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrNoDefaultProvider = errors.New("no default provider configured")
	ErrUnknownAlias      = errors.New("unknown alias")
	ErrNoDefaultAlias    = errors.New("no location specified and no default alias set")
)

// Provider errors. Every Fetch failure wraps exactly one of these.
var (
	ErrAuth            = errors.New("provider authentication failed")
	ErrNotFound        = errors.New("location not found")
	ErrUnsupportedDate = errors.New("date not supported by provider")
	ErrTransport       = errors.New("provider transport failure")
	ErrNormalization   = errors.New("malformed provider response")
)

var kinds = []error{
	ErrUnknownProvider,
	ErrNoDefaultProvider,
	ErrUnknownAlias,
	ErrNoDefaultAlias,
	ErrAuth,
	ErrNotFound,
	ErrUnsupportedDate,
	ErrTransport,
	ErrNormalization,
}

// Kind returns the sentinel error err carries, or nil when err is not part of the taxonomy.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsProviderError reports whether err originated in a provider call.
func IsProviderError(err error) bool {
	switch Kind(err) {
	case ErrAuth, ErrNotFound, ErrUnsupportedDate, ErrTransport, ErrNormalization:
		return true
	}
	return false
}
