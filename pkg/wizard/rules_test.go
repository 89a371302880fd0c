package wizard

import (
	"testing"

	"fleetonboard/pkg/domain"
)

// validDraft fills every field so individual tests can break one thing
// at a time.
func validDraft() Draft {
	return Draft{
		OwnsVehicles:     "yes",
		DeclaredCapacity: 8,
		HasRequiredDocs:  "yes",

		FullName:   "Thabo Mokoena",
		IDNumber:   "8001015009087",
		EntityType: EntityIndividual,
		Mobile:     "0821234567",
		Email:      "thabo@example.com",
		Address:    "12 Long Street, Cape Town",
		Province:   "Gauteng",

		TruckCount: 2,
		Vehicles: []domain.VehicleEntry{
			{Type: "flatbed", Capacity: 8, Registration: "CA123456"},
			{Type: "tipper", Capacity: 10, Registration: "GP987654"},
		},

		BankName:      "FNB",
		AccountHolder: "Thabo Mokoena",
		AccountNumber: "62001234567",
		AccountType:   AccountCheque,
		BranchCode:    "250655",

		AcceptTerms:     true,
		ConsentData:     true,
		ConfirmAccuracy: true,
	}
}

func fieldsOf(errs []FieldError) map[string]bool {
	out := make(map[string]bool, len(errs))
	for _, e := range errs {
		out[e.Field] = true
	}
	return out
}

func TestValidDraftPassesEveryStep(t *testing.T) {
	d := validDraft()
	if errs := ValidateAll(d); len(errs) != 0 {
		t.Fatalf("ValidateAll returned %d errors on a valid draft: %v", len(errs), errs)
	}
}

func TestBusinessEntityRequiresBusinessFields(t *testing.T) {
	d := validDraft()
	d.EntityType = EntityBusiness

	fields := fieldsOf(ValidateStep(d, StepBasicInfo))
	if !fields["businessName"] || !fields["businessRegNo"] {
		t.Fatalf("expected businessName and businessRegNo errors, got %v", fields)
	}

	d.BusinessName = "Mokoena Logistics"
	d.BusinessRegNo = "2019/123456/07"
	if errs := ValidateStep(d, StepBasicInfo); len(errs) != 0 {
		t.Fatalf("expected no errors once business fields are filled, got %v", errs)
	}

	// Individual entities never need the business fields.
	d = validDraft()
	d.EntityType = EntityIndividual
	d.BusinessName = ""
	d.BusinessRegNo = ""
	if errs := ValidateStep(d, StepBasicInfo); len(errs) != 0 {
		t.Fatalf("expected no errors for individual, got %v", errs)
	}
}

func TestMobileFormats(t *testing.T) {
	cases := []struct {
		mobile string
		valid  bool
	}{
		{"0821234567", true},
		{"+27821234567", true},
		{"821234567", true},
		{"0021234567", false}, // leading zero after prefix
		{"082123456", false},  // too short
		{"08212345678", false},
		{"not a number", false},
		{"", false},
	}
	for _, tc := range cases {
		d := validDraft()
		d.Mobile = tc.mobile
		fields := fieldsOf(ValidateStep(d, StepBasicInfo))
		if fields["mobile"] == tc.valid {
			t.Fatalf("mobile %q: valid = %v, want %v", tc.mobile, !fields["mobile"], tc.valid)
		}
	}
}

func TestBankingRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Draft)
		field  string
	}{
		{"account number too short", func(d *Draft) { d.AccountNumber = "1234567" }, "accountNumber"},
		{"account number too long", func(d *Draft) { d.AccountNumber = "12345678901234" }, "accountNumber"},
		{"account number non-digits", func(d *Draft) { d.AccountNumber = "12345abc" }, "accountNumber"},
		{"unknown account type", func(d *Draft) { d.AccountType = "credit" }, "accountType"},
		{"branch code wrong length", func(d *Draft) { d.BranchCode = "12345" }, "branchCode"},
		{"branch code non-digits", func(d *Draft) { d.BranchCode = "25065a" }, "branchCode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)
			fields := fieldsOf(ValidateStep(d, StepBankingInfo))
			if !fields[tc.field] {
				t.Fatalf("expected error on %s, got %v", tc.field, fields)
			}
		})
	}
}

func TestVehicleEntriesValidatedPerIndex(t *testing.T) {
	d := validDraft()
	d.Vehicles[1].Capacity = 20
	d.Vehicles[1].Registration = "GP"

	fields := fieldsOf(ValidateStep(d, StepVehicleInfo))
	if !fields["vehicles[1].capacity"] {
		t.Fatalf("expected vehicles[1].capacity error, got %v", fields)
	}
	if !fields["vehicles[1].registration"] {
		t.Fatalf("expected vehicles[1].registration error, got %v", fields)
	}
	if fields["vehicles[0].capacity"] || fields["vehicles[0].registration"] {
		t.Fatalf("entry 0 should stay valid, got %v", fields)
	}
}

func TestTermsRequireEveryConsent(t *testing.T) {
	d := validDraft()
	d.ConsentData = false
	fields := fieldsOf(ValidateStep(d, StepTerms))
	if !fields["consentData"] {
		t.Fatalf("expected consentData error, got %v", fields)
	}
	if fields["acceptTerms"] || fields["confirmAccuracy"] {
		t.Fatalf("other consents should pass, got %v", fields)
	}
}
