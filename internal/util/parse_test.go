package util

import "testing"

func TestParseUserReference(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"123456789012345678", "123456789012345678"},
		{"<@123456789012345678>", "123456789012345678"},
		{"<@!123456789012345678>", "123456789012345678"},
		{"  <@42>  ", "42"},
		{"@username", "username"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseUserReference(tt.input); got != tt.want {
				t.Errorf("ParseUserReference(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseIDSuffix(t *testing.T) {
	tests := []struct {
		input  string
		wantID int
		wantOK bool
	}{
		{"claim_1", 1, true},
		{"claim_42", 42, true},
		{"claim_", 0, false},
		{"claim_0", 0, false},
		{"claim_-3", -3, false},
		{"claim_abc", 0, false},
		{"request_mm", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, ok := ParseIDSuffix(tt.input, "claim_")
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ParseIDSuffix(%q) = (%d, %v), want (%d, %v)", tt.input, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestSafeAtoi(t *testing.T) {
	if got := SafeAtoi(" 17 "); got != 17 {
		t.Errorf("SafeAtoi(\" 17 \") = %d, want 17", got)
	}
	if got := SafeAtoi("seventeen"); got != 0 {
		t.Errorf("SafeAtoi(\"seventeen\") = %d, want 0", got)
	}
}
