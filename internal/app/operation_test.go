package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	start := time.Date(2024, 6, 15, 14, 30, 45, 0, time.FixedZone("CEST", 2*60*60))
	op := NewOperation("journal append", true, start)

	if op.ID != "20240615T123045Z" {
		t.Errorf("ID = %q, want %q", op.ID, "20240615T123045Z")
	}
	if op.Name != "journal append" {
		t.Errorf("Name = %q, want %q", op.Name, "journal append")
	}
	if !op.Mutating {
		t.Error("Mutating = false, want true")
	}
	if op.Status != "success" || op.Failed() {
		t.Errorf("Status = %q, want success", op.Status)
	}
}

func TestOperation_Fail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error leaves success", err: nil, want: false},
		{name: "error marks failed", err: errors.New("boom"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("content put", true, time.Now())
			op.Fail(tt.err)
			if got := op.Failed(); got != tt.want {
				t.Errorf("Failed() = %v, want %v", got, tt.want)
			}
			if op.Err != tt.err {
				t.Errorf("Err = %v, want %v", op.Err, tt.err)
			}
		})
	}
}
