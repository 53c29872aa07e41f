package access

// Mode distinguishes reads from writes at the engine boundary. The current
// consent model authorizes both with the same validity predicate; the mode
// still flows through so decisions are audited with the operation that
// triggered them.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// Deny reasons, stable strings surfaced in audit entries and API responses.
const (
	ReasonNoGrant     = "no grant"
	ReasonInactive    = "inactive"
	ReasonExpired     = "expired"
	ReasonInvalidRole = "invalid role"
)

// Decision is the engine's verdict for one (professional, patient, mode)
// triple.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
