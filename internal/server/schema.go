package server

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// submissionSchema checks the submitted draft's shape before any field
// rule runs: wrong types fail fast with a 400 instead of surfacing as
// confusing per-field validation messages.
const submissionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "ownsVehicles": {"type": "string"},
    "declaredCapacity": {"type": "number"},
    "hasRequiredDocs": {"type": "string"},
    "fullName": {"type": "string"},
    "idNumber": {"type": "string"},
    "entityType": {"type": "string"},
    "businessName": {"type": "string"},
    "businessRegNo": {"type": "string"},
    "mobile": {"type": "string"},
    "email": {"type": "string"},
    "address": {"type": "string"},
    "province": {"type": "string"},
    "truckCount": {"type": "integer", "minimum": 0},
    "vehicles": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "capacity": {"type": "number"},
          "registration": {"type": "string"},
          "documents": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "bankName": {"type": "string"},
    "accountHolder": {"type": "string"},
    "accountNumber": {"type": "string"},
    "accountType": {"type": "string"},
    "branchCode": {"type": "string"},
    "acceptTerms": {"type": "boolean"},
    "consentData": {"type": "boolean"},
    "confirmAccuracy": {"type": "boolean"}
  }
}`

var compiledSubmissionSchema = gojsonschema.NewStringLoader(submissionSchema)

// validateSubmissionShape returns one message per schema violation, or
// nil when the document is well-shaped (or not JSON at all, which the
// decoder reports with a better error).
func validateSubmissionShape(body []byte) []string {
	result, err := gojsonschema.Validate(compiledSubmissionSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return msgs
}
