package facts

import "testing"

func TestNormalize_NonBirthTemplateIsUnchanged(t *testing.T) {
	input := map[string]interface{}{"foo": "bar"}
	got := Normalize("wedding_de/v1", input)
	if got["foo"] != "bar" {
		t.Fatalf("expected passthrough, got %v", got)
	}
	if _, ok := got["child_insurance_kind"]; ok {
		t.Fatal("did not expect child_insurance_kind to be derived for a non-birth template")
	}
}

func TestNormalize_DerivesGKV(t *testing.T) {
	got := Normalize("birth_de/v1", map[string]interface{}{
		"public_insurance":  true,
		"private_insurance": false,
	})
	if got["child_insurance_kind"] != "gkv" {
		t.Fatalf("expected gkv, got %v", got["child_insurance_kind"])
	}
}

func TestNormalize_DerivesPKV(t *testing.T) {
	got := Normalize("birth_de/v1", map[string]interface{}{
		"public_insurance":  false,
		"private_insurance": true,
	})
	if got["child_insurance_kind"] != "pkv" {
		t.Fatalf("expected pkv, got %v", got["child_insurance_kind"])
	}
}

func TestNormalize_DerivesUnknownWhenAmbiguous(t *testing.T) {
	got := Normalize("birth_de/v1", map[string]interface{}{
		"public_insurance":  true,
		"private_insurance": true,
	})
	if got["child_insurance_kind"] != "unknown" {
		t.Fatalf("expected unknown, got %v", got["child_insurance_kind"])
	}
}

func TestNormalize_DerivesUnknownWhenMissing(t *testing.T) {
	got := Normalize("birth_de/v1", map[string]interface{}{})
	if got["child_insurance_kind"] != "unknown" {
		t.Fatalf("expected unknown, got %v", got["child_insurance_kind"])
	}
}

func TestNormalize_RespectsExistingGKV(t *testing.T) {
	got := Normalize("birth_de/v1", map[string]interface{}{
		"child_insurance_kind": "gkv",
		"public_insurance":      false,
		"private_insurance":     true,
	})
	if got["child_insurance_kind"] != "gkv" {
		t.Fatalf("expected existing gkv to be preserved, got %v", got["child_insurance_kind"])
	}
}

func TestNormalize_OverwritesExistingUnknown(t *testing.T) {
	got := Normalize("birth_de/v1", map[string]interface{}{
		"child_insurance_kind": "unknown",
		"public_insurance":      true,
		"private_insurance":     false,
	})
	if got["child_insurance_kind"] != "gkv" {
		t.Fatalf("expected re-derivation from unknown, got %v", got["child_insurance_kind"])
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	input := map[string]interface{}{"public_insurance": true, "private_insurance": false}
	_ = Normalize("birth_de/v1", input)
	if _, ok := input["child_insurance_kind"]; ok {
		t.Fatal("expected input map to remain unmutated")
	}
}
