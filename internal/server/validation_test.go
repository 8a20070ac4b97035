package server

import (
	"strings"
	"testing"
)

func TestValidateNickname(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "ascii", input: "Ada", want: "Ada"},
		{name: "accented", input: "José", want: "José"},
		{name: "diaeresis", input: "Zoë", want: "Zoë"},
		{name: "han", input: "李雷", want: "李雷"},
		{name: "combining mark", input: "Zoe\u0308", want: "Zoe\u0308"},
		{name: "collapses spaces", input: "  Big   Ben ", want: "Big Ben"},
		{name: "twenty runes", input: strings.Repeat("é", 20), want: strings.Repeat("é", 20)},
		{name: "twenty one runes", input: strings.Repeat("é", 21), wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "markup", input: "<b>", wantErr: true},
		{name: "emoji", input: "Ben 🎨", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validateNickname(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected %q to be accepted, got %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
