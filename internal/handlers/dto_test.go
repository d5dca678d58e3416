package handlers

import (
	"encoding/json"
	"testing"
)

func TestOptionalIntPresence(t *testing.T) {
	type payload struct {
		ParentID OptionalInt `json:"parentId"`
	}

	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantValue *int
	}{
		{"absent", `{}`, false, nil},
		{"null", `{"parentId":null}`, true, nil},
		{"value", `{"parentId":7}`, true, intPtr(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if p.ParentID.Set != tt.wantSet {
				t.Errorf("Set: got %v, want %v", p.ParentID.Set, tt.wantSet)
			}
			switch {
			case tt.wantValue == nil && p.ParentID.Value != nil:
				t.Errorf("Value: got %d, want nil", *p.ParentID.Value)
			case tt.wantValue != nil && (p.ParentID.Value == nil || *p.ParentID.Value != *tt.wantValue):
				t.Errorf("Value: got %v, want %d", p.ParentID.Value, *tt.wantValue)
			}
		})
	}
}

func TestOptionalIntRejectsNonInteger(t *testing.T) {
	var o OptionalInt
	if err := json.Unmarshal([]byte(`"seven"`), &o); err == nil {
		t.Error("expected an error for a non-integer value")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := validate.Struct(registerRequest{Username: "ab", Email: "not-an-email", Password: ""})
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	msg := validationError(err)
	if msg == "" || msg == "invalid request body" {
		t.Errorf("expected field names in message, got %q", msg)
	}
}

func intPtr(v int) *int { return &v }
