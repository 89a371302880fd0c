package wizard

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// FieldError is a field-scoped validation failure. It blocks step
// advancement but is never fatal to the draft.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// mobilePattern: optional country prefix, then 9 digits, first 1-9.
var (
	mobilePattern     = regexp.MustCompile(`^(\+27|0)?[1-9][0-9]{8}$`)
	digitsOnlyPattern = regexp.MustCompile(`^[0-9]+$`)
)

// rule checks one field against a draft snapshot. An empty message means
// the field is valid.
type rule struct {
	field string
	check func(Draft) string
}

var stepRules = map[Step][]rule{
	StepEligibility: {
		{"ownsVehicles", func(d Draft) string {
			if d.OwnsVehicles != "yes" && d.OwnsVehicles != "no" {
				return "select yes or no"
			}
			return ""
		}},
		{"declaredCapacity", func(d Draft) string {
			if d.DeclaredCapacity <= 0 {
				return "capacity must be a positive number"
			}
			return ""
		}},
		{"hasRequiredDocs", func(d Draft) string {
			if d.HasRequiredDocs != "yes" && d.HasRequiredDocs != "no" {
				return "select yes or no"
			}
			return ""
		}},
	},
	StepBasicInfo: {
		{"fullName", minLen("full name", func(d Draft) string { return d.FullName }, 2)},
		{"idNumber", minLen("ID or passport number", func(d Draft) string { return d.IDNumber }, 5)},
		{"entityType", func(d Draft) string {
			if d.EntityType != EntityIndividual && d.EntityType != EntityBusiness {
				return "must be individual or business"
			}
			return ""
		}},
		{"businessName", func(d Draft) string {
			if d.EntityType == EntityBusiness && len(strings.TrimSpace(d.BusinessName)) <= 1 {
				return "business name is required"
			}
			return ""
		}},
		{"businessRegNo", func(d Draft) string {
			if d.EntityType == EntityBusiness && len(strings.TrimSpace(d.BusinessRegNo)) <= 1 {
				return "business registration number is required"
			}
			return ""
		}},
		{"mobile", func(d Draft) string {
			if !mobilePattern.MatchString(strings.TrimSpace(d.Mobile)) {
				return "enter a valid mobile number"
			}
			return ""
		}},
		{"email", func(d Draft) string {
			addr := strings.TrimSpace(d.Email)
			if addr == "" {
				return "email is required"
			}
			if _, err := mail.ParseAddress(addr); err != nil {
				return "enter a valid email address"
			}
			return ""
		}},
		{"address", minLen("address", func(d Draft) string { return d.Address }, 5)},
		{"province", func(d Draft) string {
			for _, p := range Provinces {
				if d.Province == p {
					return ""
				}
			}
			return "select a province"
		}},
	},
	StepVehicleInfo: {
		{"truckCount", func(d Draft) string {
			if d.TruckCount < 1 {
				return "at least one truck is required"
			}
			return ""
		}},
	},
	StepBankingInfo: {
		{"bankName", minLen("bank name", func(d Draft) string { return d.BankName }, 2)},
		{"accountHolder", minLen("account holder", func(d Draft) string { return d.AccountHolder }, 2)},
		{"accountNumber", func(d Draft) string {
			n := strings.TrimSpace(d.AccountNumber)
			if len(n) < 8 || len(n) > 13 || !digitsOnlyPattern.MatchString(n) {
				return "account number must be 8 to 13 digits"
			}
			return ""
		}},
		{"accountType", func(d Draft) string {
			switch d.AccountType {
			case AccountCheque, AccountSavings, AccountBusiness:
				return ""
			}
			return "must be cheque, savings or business"
		}},
		{"branchCode", func(d Draft) string {
			c := strings.TrimSpace(d.BranchCode)
			if len(c) != 6 || !digitsOnlyPattern.MatchString(c) {
				return "branch code must be exactly 6 digits"
			}
			return ""
		}},
	},
	StepTerms: {
		{"acceptTerms", consent(func(d Draft) bool { return d.AcceptTerms }, "you must accept the terms")},
		{"consentData", consent(func(d Draft) bool { return d.ConsentData }, "you must consent to data processing")},
		{"confirmAccuracy", consent(func(d Draft) bool { return d.ConfirmAccuracy }, "you must confirm the details are accurate")},
	},
}

func minLen(label string, get func(Draft) string, n int) func(Draft) string {
	return func(d Draft) string {
		if len(strings.TrimSpace(get(d))) < n {
			return fmt.Sprintf("%s must be at least %d characters", label, n)
		}
		return ""
	}
}

func consent(get func(Draft) bool, msg string) func(Draft) string {
	return func(d Draft) string {
		if !get(d) {
			return msg
		}
		return ""
	}
}

// ValidateStep evaluates the rules belonging to one step. Vehicle entries
// get per-index checks on top of the static truck-count rule.
func ValidateStep(d Draft, s Step) []FieldError {
	var errs []FieldError
	for _, r := range stepRules[s] {
		if msg := r.check(d); msg != "" {
			errs = append(errs, FieldError{Field: r.field, Message: msg})
		}
	}
	if s == StepVehicleInfo {
		errs = append(errs, validateVehicles(d)...)
	}
	return errs
}

func validateVehicles(d Draft) []FieldError {
	var errs []FieldError
	for i, v := range d.Vehicles {
		if v.Capacity < minCapacityTons || v.Capacity > maxCapacityTons {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("vehicles[%d].capacity", i),
				Message: fmt.Sprintf("capacity must be between %d and %d tons", minCapacityTons, maxCapacityTons),
			})
		}
		if len(strings.TrimSpace(v.Registration)) < 3 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("vehicles[%d].registration", i),
				Message: "registration must be at least 3 characters",
			})
		}
	}
	return errs
}

// ValidateAll evaluates every step's rules in step order, as done at
// submission time.
func ValidateAll(d Draft) []FieldError {
	var errs []FieldError
	for s := StepEligibility; s <= StepTerms; s++ {
		errs = append(errs, ValidateStep(d, s)...)
	}
	return errs
}
