package scheduling

import "fmt"

// RejectionKind is the machine-readable category of an admission failure.
// Callers must be able to tell the categories apart; the boundary maps each
// one to its own HTTP status.
type RejectionKind string

const (
	KindNotFound      RejectionKind = "not_found"
	KindForbidden     RejectionKind = "forbidden"
	KindUnprocessable RejectionKind = "unprocessable"
	KindConflict      RejectionKind = "conflict"
)

// Rejection is a request-level business rejection. It is raised at the first
// failing admission rule and propagates unmodified to the boundary. System
// failures are ordinary errors, never Rejections.
type Rejection struct {
	Kind    RejectionKind
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(kind RejectionKind, code, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Stable rejection codes, one per admission rule outcome.
const (
	CodePetNotFound          = "pet_not_found"
	CodeOwnerInactive        = "pet_owner_inactive"
	CodeServiceNotFound      = "service_not_found"
	CodeProviderNotFound     = "provider_not_found"
	CodePastDateTime         = "past_datetime"
	CodeUnalignedHour        = "unaligned_hour"
	CodeNonOperatingDay      = "non_operating_day"
	CodeOutsideBusinessHours = "outside_business_hours"
	CodeSlotTaken            = "slot_taken"
)
