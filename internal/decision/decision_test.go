package decision

import "testing"

func TestNewPopulatesRecord(t *testing.T) {
	rec := New(TypeQualityGate, "score 8.2 meets threshold", "approved", 9)
	if rec.ID == "" {
		t.Error("New should assign an id")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("New should stamp the record")
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("fresh record should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing id", func(r *Record) { r.ID = "" }},
		{"bad type", func(r *Record) { r.Type = "hunch" }},
		{"confidence too low", func(r *Record) { r.Confidence = 0 }},
		{"confidence too high", func(r *Record) { r.Confidence = 11 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := New(TypeEscalation, "r", "o", 5)
			tt.mutate(rec)
			if err := rec.Validate(); err == nil {
				t.Errorf("%s should fail validation", tt.name)
			}
		})
	}
}

func TestDiscardAcceptsAnything(t *testing.T) {
	var sink Sink = Discard{}
	if err := sink.Record(New(TypeWorkflowSelection, "r", "o", 5)); err != nil {
		t.Errorf("Discard.Record returned %v", err)
	}
}
