package wizard

import "fleetonboard/pkg/domain"

// EntityType values accepted by the basic-info step.
const (
	EntityIndividual = "individual"
	EntityBusiness   = "business"
)

// AccountType values accepted by the banking step.
const (
	AccountCheque   = "cheque"
	AccountSavings  = "savings"
	AccountBusiness = "business"
)

// Provinces is the fixed region list the province field must come from.
var Provinces = []string{
	"Eastern Cape",
	"Free State",
	"Gauteng",
	"KwaZulu-Natal",
	"Limpopo",
	"Mpumalanga",
	"North West",
	"Northern Cape",
	"Western Cape",
}

// Draft holds the in-progress wizard data. It is a plain value: rules and
// the eligibility predicate are pure functions over a snapshot of it.
type Draft struct {
	// eligibility step
	OwnsVehicles     string  `json:"ownsVehicles"` // "yes" or "no"
	DeclaredCapacity float64 `json:"declaredCapacity"`
	HasRequiredDocs  string  `json:"hasRequiredDocs"` // "yes" or "no"

	// basic info step
	FullName       string `json:"fullName"`
	IDNumber       string `json:"idNumber"`
	EntityType     string `json:"entityType"`
	BusinessName   string `json:"businessName"`
	BusinessRegNo  string `json:"businessRegNo"`
	Mobile         string `json:"mobile"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	Province       string `json:"province"`

	// vehicle info step
	TruckCount int                   `json:"truckCount"`
	Vehicles   []domain.VehicleEntry `json:"vehicles"`

	// banking step
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType"`
	BranchCode    string `json:"branchCode"`

	// terms step
	AcceptTerms     bool `json:"acceptTerms"`
	ConsentData     bool `json:"consentData"`
	ConfirmAccuracy bool `json:"confirmAccuracy"`
}

// NewDraft returns a draft with one blank vehicle entry, matching the
// initial truck count of 1.
func NewDraft() Draft {
	return Draft{
		TruckCount: 1,
		Vehicles:   []domain.VehicleEntry{blankVehicle()},
	}
}

func blankVehicle() domain.VehicleEntry {
	return domain.VehicleEntry{Capacity: 1}
}

// ResizeVehicles brings the vehicle collection in sync with TruckCount.
// Growing appends blank entries; shrinking truncates from the end and
// never touches the surviving entries.
func (d *Draft) ResizeVehicles() {
	if d.TruckCount < 0 {
		d.TruckCount = 0
	}
	for len(d.Vehicles) < d.TruckCount {
		d.Vehicles = append(d.Vehicles, blankVehicle())
	}
	if len(d.Vehicles) > d.TruckCount {
		d.Vehicles = d.Vehicles[:d.TruckCount]
	}
}

// RemoveVehicle deletes the entry at index i and decrements the counter.
// Out-of-range indexes are ignored.
func (d *Draft) RemoveVehicle(i int) {
	if i < 0 || i >= len(d.Vehicles) {
		return
	}
	d.Vehicles = append(d.Vehicles[:i], d.Vehicles[i+1:]...)
	d.TruckCount = len(d.Vehicles)
}

// CompleteVehicles counts entries whose type and registration are filled in.
func (d Draft) CompleteVehicles() int {
	n := 0
	for _, v := range d.Vehicles {
		if v.Complete() {
			n++
		}
	}
	return n
}

// Payload renders the draft as the open-ended document stored with the
// application. Shape is schema-less at the storage boundary; typing
// happens here, before submission.
func (d Draft) Payload() map[string]any {
	vehicles := make([]map[string]any, 0, len(d.Vehicles))
	for _, v := range d.Vehicles {
		vehicles = append(vehicles, map[string]any{
			"type":         v.Type,
			"capacity":     v.Capacity,
			"registration": v.Registration,
			"documents":    v.Documents,
		})
	}
	return map[string]any{
		"ownsVehicles":     d.OwnsVehicles,
		"declaredCapacity": d.DeclaredCapacity,
		"hasRequiredDocs":  d.HasRequiredDocs,
		"fullName":         d.FullName,
		"idNumber":         d.IDNumber,
		"entityType":       d.EntityType,
		"businessName":     d.BusinessName,
		"businessRegNo":    d.BusinessRegNo,
		"mobile":           d.Mobile,
		"email":            d.Email,
		"address":          d.Address,
		"province":         d.Province,
		"truckCount":       d.TruckCount,
		"vehicles":         vehicles,
		"bankName":         d.BankName,
		"accountHolder":    d.AccountHolder,
		"accountNumber":    d.AccountNumber,
		"accountType":      d.AccountType,
		"branchCode":       d.BranchCode,
		"acceptTerms":      d.AcceptTerms,
		"consentData":      d.ConsentData,
		"confirmAccuracy":  d.ConfirmAccuracy,
	}
}
