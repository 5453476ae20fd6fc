package checklist

import (
	"time"

	"github.com/google/uuid"
)

// Phase identifies one of the three ordered safety-confirmation phases.
type Phase string

const (
	PhaseSignIn  Phase = "SIGN_IN"
	PhaseTimeOut Phase = "TIME_OUT"
	PhaseSignOut Phase = "SIGN_OUT"
)

// phaseOrder fixes the sequence a case must work through.
var phaseOrder = []Phase{PhaseSignIn, PhaseTimeOut, PhaseSignOut}

// Item is a single safety confirmation inside a phase.
type Item struct {
	Name      string `json:"name"`
	Confirmed bool   `json:"confirmed"`
}

// Record is the stored checklist state for one case and phase. Items are
// held as jsonb. A record is mutable until Completed flips, after which it
// is final and re-submissions are no-ops.
type Record struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CaseID      uuid.UUID  `db:"case_id" json:"case_id"`
	Phase       Phase      `db:"phase" json:"phase"`
	Items       []Item     `db:"items" json:"items"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedBy *uuid.UUID `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// canonicalItems lists the expected confirmations per phase, used to report
// what is missing when no record has been submitted yet.
var canonicalItems = map[Phase][]string{
	PhaseSignIn: {
		"patient identity confirmed",
		"surgical site marked",
		"anesthesia safety check completed",
		"pulse oximeter on patient and functioning",
		"known allergies reviewed",
	},
	PhaseTimeOut: {
		"all team members introduced",
		"patient, site and procedure confirmed",
		"antibiotic prophylaxis given",
		"essential imaging displayed",
	},
	PhaseSignOut: {
		"procedure name recorded",
		"instrument, sponge and needle counts correct",
		"specimens labelled",
		"equipment problems addressed",
		"recovery concerns reviewed",
	},
}

// ValidPhase reports whether p names a known phase.
func ValidPhase(p Phase) bool {
	_, ok := canonicalItems[p]
	return ok
}

// Predecessor returns the phase that must be complete before p, if any.
func Predecessor(p Phase) (Phase, bool) {
	for i, cur := range phaseOrder {
		if cur == p && i > 0 {
			return phaseOrder[i-1], true
		}
	}
	return "", false
}

// CanonicalItems returns the expected item names for a phase.
func CanonicalItems(p Phase) []string {
	items := canonicalItems[p]
	out := make([]string, len(items))
	copy(out, items)
	return out
}
