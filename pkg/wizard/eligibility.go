package wizard

// Rejection reasons surfaced by the eligibility gate. Only the first
// failing rule's reason is reported.
const (
	ReasonDriverOnly  = "Reject: Driver only not allowed"
	ReasonTruckSize   = "Reject: Invalid truck size"
	ReasonMissingDocs = "Reject: Missing roadworthy or insurance"
)

const (
	minCapacityTons = 1
	maxCapacityTons = 15
)

// Eligibility is the derived status of the step-0 gate.
type Eligibility struct {
	OK     bool
	Reason string
}

// Evaluate applies the eligibility rules in order and short-circuits on
// the first failure: ownership, then capacity range, then documents.
func Evaluate(d Draft) Eligibility {
	if d.OwnsVehicles != "yes" {
		return Eligibility{Reason: ReasonDriverOnly}
	}
	if d.DeclaredCapacity < minCapacityTons || d.DeclaredCapacity > maxCapacityTons {
		return Eligibility{Reason: ReasonTruckSize}
	}
	if d.HasRequiredDocs != "yes" {
		return Eligibility{Reason: ReasonMissingDocs}
	}
	return Eligibility{OK: true}
}
