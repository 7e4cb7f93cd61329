package experiments

// Completeness records how much of the identity data made it into an
// evaluation context. A minimal context is the fallback produced when
// assembling the full context failed partway; tagging it keeps the
// degradation observable in logs and tests.
type Completeness string

const (
	// ContextFull means every available identity field was resolved.
	ContextFull Completeness = "full"

	// ContextMinimal means assembly failed and the context carries only
	// the user ID.
	ContextMinimal Completeness = "minimal"
)

// EvaluationContext is the immutable per-request identity snapshot handed
// to the decision engine. Optional fields are pointers so that "absent"
// stays distinct from a zero value: an absent field is omitted from the
// engine mapping entirely, never coerced to "" or false.
//
// EventFields enrich exposure events only; they are never shown to the
// engine and are excluded from ToMap.
type EvaluationContext struct {
	// UserID is the only required field. A context without it cannot be
	// built.
	UserID string

	LOID                   *string
	CountryCode            *string
	DeviceID               *string
	RequestURL             *string
	AuthenticationToken    *string
	AppName                *string
	BuildNumber            *string
	LoggedIn               *bool
	UserIsEmployee         *bool
	CookieCreatedTimestamp *float64

	// EventFields are extra attributes attached to exposure events
	// (correlation IDs, session data). Opaque to the engine.
	EventFields map[string]any

	// Completeness tags whether this is a full or fallback context.
	Completeness Completeness
}

// NewMinimalContext returns the fallback context: user ID only, tagged
// ContextMinimal.
func NewMinimalContext(userID string) EvaluationContext {
	return EvaluationContext{
		UserID:       userID,
		Completeness: ContextMinimal,
	}
}

// ToMap flattens the context into the field mapping the engine evaluates
// targeting predicates and bucket values against. Absent optional fields
// are omitted; EventFields never appear.
func (c EvaluationContext) ToMap() map[string]any {
	m := map[string]any{
		"user_id": c.UserID,
	}
	if c.LOID != nil {
		m["loid"] = *c.LOID
	}
	if c.CountryCode != nil {
		m["country_code"] = *c.CountryCode
	}
	if c.DeviceID != nil {
		m["device_id"] = *c.DeviceID
	}
	if c.RequestURL != nil {
		m["request_url"] = *c.RequestURL
	}
	if c.AuthenticationToken != nil {
		m["authentication_token"] = *c.AuthenticationToken
	}
	if c.AppName != nil {
		m["app_name"] = *c.AppName
	}
	if c.BuildNumber != nil {
		m["build_number"] = *c.BuildNumber
	}
	if c.LoggedIn != nil {
		m["logged_in"] = *c.LoggedIn
	}
	if c.UserIsEmployee != nil {
		m["user_is_employee"] = *c.UserIsEmployee
	}
	if c.CookieCreatedTimestamp != nil {
		m["cookie_created_timestamp"] = *c.CookieCreatedTimestamp
	}
	return m
}
