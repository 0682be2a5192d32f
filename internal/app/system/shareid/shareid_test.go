package shareid_test

import (
	"testing"

	"github.com/dalemusser/homeready/internal/app/system/shareid"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := shareid.New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if !shareid.Valid(id) {
			t.Fatalf("New returned invalid id %q", id)
		}
		if seen[id] {
			t.Fatalf("New repeated id %q", id)
		}
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"abcdefghijklmnopqrstuvwxyz", true},
		{"234567abcdefghijklmnopqrst", true},
		{"ABCDEFGHIJKLMNOPQRSTUVWXYZ", false},
		{"abcdefghijklmnopqrstuvwxy1", false},
		{"abc", false},
		{"", false},
		{"../../etc/passwdaaaaaaaaaa", false},
	}
	for _, tt := range tests {
		if got := shareid.Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
