package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleetonboard/pkg/domain"
)

// Step indexes the ordered wizard sequence.
type Step int

const (
	StepEligibility Step = iota
	StepBasicInfo
	StepVehicleInfo
	StepBankingInfo
	StepTerms
)

const stepCount = int(StepTerms) + 1

func (s Step) String() string {
	switch s {
	case StepEligibility:
		return "eligibility"
	case StepBasicInfo:
		return "basic-info"
	case StepVehicleInfo:
		return "vehicle-info"
	case StepBankingInfo:
		return "banking-info"
	case StepTerms:
		return "terms"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Backend is the collaborator the wizard submits to. It is injected so a
// fake store can stand in during tests.
type Backend interface {
	SubmitApplication(ctx context.Context, app domain.Application) (string, error)
}

// AdvanceResult reports the outcome of an Advance call. When Moved is
// false, FieldErrors or Rejection explains why; the first field error is
// the one that should receive focus. A zero result (Moved false, no
// FieldErrors, no Rejection) only happens on the terminal step, where
// Advance has nowhere left to go.
type AdvanceResult struct {
	Moved       bool
	FieldErrors []FieldError
	Rejection   string
}

// Machine owns the wizard's step index, draft, viewed vehicle index and
// terminal success flag. It is single-session state: not safe for
// concurrent use, by contract with its UI owner.
type Machine struct {
	backend Backend

	draft         Draft
	step          Step
	viewedVehicle int
	submitted     bool
	userID        string
}

// NewMachine starts a wizard at the eligibility step with a fresh draft.
func NewMachine(backend Backend) *Machine {
	return &Machine{backend: backend, draft: NewDraft()}
}

// SetUserID attaches the submitting identity. Empty means anonymous.
func (m *Machine) SetUserID(id string) { m.userID = id }

// Draft returns a snapshot of the current draft.
func (m *Machine) Draft() Draft { return m.draft }

// Step returns the current step index.
func (m *Machine) Step() Step { return m.step }

// Submitted reports the terminal success flag. It is separate from the
// step index and set only by a successful Submit.
func (m *Machine) Submitted() bool { return m.submitted }

// ViewedVehicle returns the currently viewed vehicle index.
func (m *Machine) ViewedVehicle() int { return m.viewedVehicle }

// Update applies a mutation to the draft, then re-syncs the vehicle
// collection with the truck counter and clamps the viewed index. This is
// the validate-on-change entry point: callers re-read Errors afterwards.
func (m *Machine) Update(fn func(*Draft)) {
	fn(&m.draft)
	m.draft.ResizeVehicles()
	m.clampViewedVehicle()
}

// SetTruckCount changes the counter and resizes the vehicle collection.
func (m *Machine) SetTruckCount(n int) {
	m.draft.TruckCount = n
	m.draft.ResizeVehicles()
	m.clampViewedVehicle()
}

// RemoveVehicle deletes one entry, decrements the counter and re-clamps
// the viewed index.
func (m *Machine) RemoveVehicle(i int) {
	m.draft.RemoveVehicle(i)
	m.clampViewedVehicle()
}

// ViewVehicle moves the viewed index, clamped into the valid range.
func (m *Machine) ViewVehicle(i int) {
	m.viewedVehicle = i
	m.clampViewedVehicle()
}

func (m *Machine) clampViewedVehicle() {
	if m.viewedVehicle >= len(m.draft.Vehicles) {
		m.viewedVehicle = len(m.draft.Vehicles) - 1
	}
	if m.viewedVehicle < 0 {
		m.viewedVehicle = 0
	}
}

// Errors returns the field errors for the current step, re-evaluated
// from the draft snapshot.
func (m *Machine) Errors() []FieldError {
	return ValidateStep(m.draft, m.step)
}

// Eligibility returns the derived gate status for the current draft.
func (m *Machine) Eligibility() Eligibility {
	return Evaluate(m.draft)
}

// Advance validates the current step and moves forward when it passes.
// The eligibility step carries an extra gate: well-formed fields are not
// enough, the eligibility rules must also hold.
//
// On the terminal step Advance is a no-op that returns the zero
// AdvanceResult: the step stays put and nothing is reported as wrong.
// Submit, not Advance, leaves the terminal step.
func (m *Machine) Advance() AdvanceResult {
	if errs := ValidateStep(m.draft, m.step); len(errs) > 0 {
		return AdvanceResult{FieldErrors: errs}
	}
	if m.step == StepEligibility {
		if el := Evaluate(m.draft); !el.OK {
			return AdvanceResult{Rejection: el.Reason}
		}
	}
	if int(m.step) >= stepCount-1 {
		return AdvanceResult{}
	}
	m.step++
	return AdvanceResult{Moved: true}
}

// Retreat moves back one step unconditionally, floored at the first
// step. It never re-validates.
func (m *Machine) Retreat() {
	if m.step > 0 {
		m.step--
	}
}

// JumpTo moves to a previously completed step. Forward jumps are
// rejected.
func (m *Machine) JumpTo(s Step) bool {
	if s < 0 || s >= m.step {
		return false
	}
	m.step = s
	return true
}

// Submit validates the full schema from the terminal step and sends the
// payload to the backend. On success the terminal flag flips; on any
// failure the machine stays on the terminal step with state intact.
func (m *Machine) Submit(ctx context.Context) (string, []FieldError, error) {
	if m.step != StepTerms {
		return "", nil, fmt.Errorf("submit is only available from the %s step", StepTerms)
	}
	if errs := ValidateAll(m.draft); len(errs) > 0 {
		return "", errs, nil
	}
	now := time.Now().UTC()
	app := domain.Application{
		ID:            uuid.NewString(),
		UserID:        m.userID,
		ApplicantName: m.draft.FullName,
		Email:         m.draft.Email,
		Phone:         m.draft.Mobile,
		Status:        domain.StatusPending,
		Payload:       m.draft.Payload(),
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
	id, err := m.backend.SubmitApplication(ctx, app)
	if err != nil {
		return "", nil, err
	}
	m.submitted = true
	return id, nil, nil
}

// CompletionPercent is a derived value over the draft: the share of
// steps whose rules currently pass, plus the eligibility gate.
func (m *Machine) CompletionPercent() int {
	done := 0
	for s := StepEligibility; s <= StepTerms; s++ {
		if len(ValidateStep(m.draft, s)) != 0 {
			continue
		}
		if s == StepEligibility && !Evaluate(m.draft).OK {
			continue
		}
		done++
	}
	return done * 100 / stepCount
}
