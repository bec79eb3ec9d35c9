package models

import "testing"

func TestRetrieveRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *RetrieveRequest
		wantErr bool
		wantK   int
	}{
		{"empty query", &RetrieveRequest{Query: ""}, true, 0},
		{"defaults applied", &RetrieveRequest{Query: "revenue by month"}, false, 5},
		{"k clamped", &RetrieveRequest{Query: "x", K: 500}, false, 50},
		{"k preserved", &RetrieveRequest{Query: "x", K: 3}, false, 3},
		{"negative weight", &RetrieveRequest{Query: "x", Weights: &SearchWeights{VectorWeight: -1}}, true, 0},
		{"all-zero weights", &RetrieveRequest{Query: "x", Weights: &SearchWeights{}}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(5, 50)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.req.K != tt.wantK {
				t.Errorf("K = %d, want %d", tt.req.K, tt.wantK)
			}
			if tt.req.Weights == nil {
				t.Error("expected default weights to be set")
			}
		})
	}
}

func TestParseValidationLevel(t *testing.T) {
	if lvl, err := ParseValidationLevel(""); err != nil || lvl != ValidationStrict {
		t.Errorf("empty should default to strict, got %v %v", lvl, err)
	}
	if lvl, err := ParseValidationLevel("BASIC"); err != nil || lvl != ValidationBasic {
		t.Errorf("BASIC should parse, got %v %v", lvl, err)
	}
	if _, err := ParseValidationLevel("paranoid"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestValidationResult(t *testing.T) {
	r := NewValidationResult()
	if !r.IsValid {
		t.Fatal("fresh result should be valid")
	}
	r.AddWarning("column %q not resolved", "foo")
	if !r.IsValid {
		t.Error("warnings must not invalidate the result")
	}
	r.AddError("Table '%s' not found in schema", "ghost")
	if r.IsValid {
		t.Error("errors must invalidate the result")
	}
	if r.Errors[0] != "Table 'ghost' not found in schema" {
		t.Errorf("unexpected error text: %s", r.Errors[0])
	}
}
