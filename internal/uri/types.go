package uri

import "fmt"

// Scheme is the only scheme accepted by Parse.
const Scheme = "wrap"

// Uri is the immutable, normalized address of an API. It is only produced
// by Parse, which guarantees Raw is canonical.
type Uri struct {
	authority string
	path      string
	raw       string
}

// Authority returns the authority component, e.g. `ens` or `fs`.
func (u Uri) Authority() string { return u.authority }

// Path returns everything after the authority, without a leading slash.
func (u Uri) Path() string { return u.path }

// String returns the canonical representation, e.g. `wrap://ens/math.eth`.
func (u Uri) String() string { return u.raw }

// IsZero reports whether u was never parsed.
func (u Uri) IsZero() bool { return u.raw == "" }

// Equal compares two Uris by their canonical form.
func (u Uri) Equal(other Uri) bool { return u.raw == other.raw }

// InvalidUriError is returned when a raw string cannot be normalized into a Uri.
type InvalidUriError struct {
	Raw    string
	Reason string
}

func (e *InvalidUriError) Error() string {
	return fmt.Sprintf("invalid uri %q: %s", e.Raw, e.Reason)
}
