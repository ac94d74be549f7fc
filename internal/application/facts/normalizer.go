// Package facts applies domain-specific canonicalization to a plan's
// raw fact map before it reaches the planner engine.
package facts

import "strings"

var childInsuranceValues = map[string]bool{"unknown": true, "gkv": true, "pkv": true}

// Normalize returns a canonicalized copy of facts for the given
// template key. The input map is never mutated.
func Normalize(templateKey string, input map[string]interface{}) map[string]interface{} {
	normalized := make(map[string]interface{}, len(input))
	for k, v := range input {
		normalized[k] = v
	}

	if strings.HasPrefix(templateKey, "birth_de/") {
		normalizeBirthFacts(normalized)
	}

	return normalized
}

func normalizeBirthFacts(facts map[string]interface{}) {
	current, _ := facts["child_insurance_kind"].(string)
	if current == "gkv" || current == "pkv" {
		return
	}

	publicInsurance, _ := facts["public_insurance"].(bool)
	privateInsurance, _ := facts["private_insurance"].(bool)
	publicSet := isBool(facts["public_insurance"])
	privateSet := isBool(facts["private_insurance"])

	derived := "unknown"
	switch {
	case publicSet && privateSet && publicInsurance && !privateInsurance:
		derived = "gkv"
	case publicSet && privateSet && !publicInsurance && privateInsurance:
		derived = "pkv"
	}

	if !childInsuranceValues[current] || current == "unknown" {
		facts["child_insurance_kind"] = derived
	}
}

func isBool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}
