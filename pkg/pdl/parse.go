package pdl

import (
	"encoding/json"
)

// parsePerson maps a raw provider row into a Person. Missing or malformed
// fields degrade to zero values; a row never fails the whole page.
func parsePerson(raw json.RawMessage) Person {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Person{}
	}

	p := Person{
		ID:             stringField(fields, "id"),
		WorkEmail:      stringField(fields, "work_email"),
		FirstName:      stringField(fields, "first_name"),
		LastName:       stringField(fields, "last_name"),
		JobTitle:       stringField(fields, "job_title"),
		JobCompanyID:   stringField(fields, "job_company_id"),
		JobCompanyName: stringField(fields, "job_company_name"),
		LinkedinURL:    stringField(fields, "linkedin_url"),
	}

	// Provider likelihood is 0-10; normalize to [0,1].
	if v, ok := fields["likelihood"].(float64); ok && v >= 0 {
		score := v / 10
		if score > 1 {
			score = 1
		}
		p.Likelihood = &score
	}

	return p
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
