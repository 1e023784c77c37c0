package grid

import "testing"

func TestFixed(t *testing.T) {
	tests := []struct {
		value  float64
		digits int
		want   string
	}{
		{1.005, 2, "1.00"},
		{0.125, 2, "0.13"},
		{2.5, 0, "3"},
		{1.45, 1, "1.4"},
		{99.96, 1, "100.0"},
		{(2.5 + 3.75 + 1.0) / 3, 2, "2.42"},
		{(1.00 + 2.10) / 2, 2, "1.55"},
		{3, 2, "3.00"},
		{3, 0, "3"},
		{-1.5, 0, "-2"},
		{0, 1, "0.0"},
	}
	for _, tt := range tests {
		if got := fixed(tt.value, tt.digits); got != tt.want {
			t.Errorf("fixed(%v, %d) = %q, want %q", tt.value, tt.digits, got, tt.want)
		}
	}
}

func TestLeadingFloat(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"12abc", 12, true},
		{"  3.5", 3.5, true},
		{".5", 0.5, true},
		{"1.", 1, true},
		{"1e3", 1000, true},
		{"1e", 1, true},
		{"-2", -2, true},
		{"abc", 0, false},
		{"", 0, false},
		{".", 0, false},
		{"000", 0, true},
	}
	for _, tt := range tests {
		got, ok := leadingFloat(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("leadingFloat(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPadded(t *testing.T) {
	if got := padded(7, 3); got != "007" {
		t.Fatalf("expected 007, got %q", got)
	}
	if got := padded(102.5, 3); got != "103" {
		t.Fatalf("expected 103, got %q", got)
	}
	if got := padded(1234, 3); got != "1234" {
		t.Fatalf("expected 1234, got %q", got)
	}
}
