package experiments

// IdentitySource is the boundary between the host service and context
// assembly. Hosts implement it over whatever carries their request
// identity (edge headers, session cookies, auth middleware); the factory
// only ever reads through this interface.
//
// Getters return an error when the underlying data exists but cannot be
// resolved (corrupt cookie, failed token parse). An empty string with a
// nil error means the field is genuinely absent for this request and is
// omitted from the assembled context.
type IdentitySource interface {
	// UserID returns the fully-prefixed user identifier. It is the only
	// field whose failure makes the request unidentifiable.
	UserID() (string, error)

	// LOID returns the logged-out browser identifier, if any.
	LOID() (string, error)

	// DeviceID returns the device identifier, if any.
	DeviceID() (string, error)

	// CountryCode returns the request's country code, if known.
	CountryCode() (string, error)

	// LoggedIn reports whether the request carries an authenticated
	// session.
	LoggedIn() (bool, error)

	// HasRole reports whether the authenticated user holds the given
	// role (e.g. "employee").
	HasRole(role string) (bool, error)

	// AuthenticationToken returns the raw auth token, if present. It is
	// redacted from exposure events before any sink sees it.
	AuthenticationToken() (string, error)

	// RequestURL returns the URL of the request under evaluation.
	RequestURL() (string, error)

	// EventFields returns extra attributes to attach to exposure events.
	EventFields() (map[string]any, error)
}

// StaticIdentity is a value-backed IdentitySource for hosts that have
// already resolved their identity data, and for tests. Zero-value string
// fields read as absent.
type StaticIdentity struct {
	User     string
	Loid     string
	Device   string
	Country  string
	SignedIn bool
	Roles    []string
	Token    string
	URL      string
	Fields   map[string]any
}

// UserID implements IdentitySource.
func (s StaticIdentity) UserID() (string, error) { return s.User, nil }

// LOID implements IdentitySource.
func (s StaticIdentity) LOID() (string, error) { return s.Loid, nil }

// DeviceID implements IdentitySource.
func (s StaticIdentity) DeviceID() (string, error) { return s.Device, nil }

// CountryCode implements IdentitySource.
func (s StaticIdentity) CountryCode() (string, error) { return s.Country, nil }

// LoggedIn implements IdentitySource.
func (s StaticIdentity) LoggedIn() (bool, error) { return s.SignedIn, nil }

// HasRole implements IdentitySource.
func (s StaticIdentity) HasRole(role string) (bool, error) {
	for _, r := range s.Roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// AuthenticationToken implements IdentitySource.
func (s StaticIdentity) AuthenticationToken() (string, error) { return s.Token, nil }

// RequestURL implements IdentitySource.
func (s StaticIdentity) RequestURL() (string, error) { return s.URL, nil }

// EventFields implements IdentitySource.
func (s StaticIdentity) EventFields() (map[string]any, error) { return s.Fields, nil }
