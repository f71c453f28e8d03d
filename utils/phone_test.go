package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		cc      string
		want    string
		wantErr bool
	}{
		{name: "already e164", raw: "+254712345678", cc: "+254", want: "+254712345678"},
		{name: "leading zero local", raw: "0712345678", cc: "+254", want: "+254712345678"},
		{name: "spaces and dashes", raw: "0712-345 678", cc: "+254", want: "+254712345678"},
		{name: "plus with spaces", raw: "+254 712 345 678", cc: "+254", want: "+254712345678"},
		{name: "country code without plus", raw: "254712345678", cc: "+254", want: "+254712345678"},
		{name: "bare national number", raw: "712345678", cc: "+254", want: "+254712345678"},
		{name: "different default code", raw: "07911 123456", cc: "+44", want: "+447911123456"},
		{name: "empty", raw: "", cc: "+254", wantErr: true},
		{name: "whitespace only", raw: "   ", cc: "+254", wantErr: true},
		{name: "too short", raw: "12345", cc: "+254", wantErr: true},
		{name: "no default country code", raw: "0712345678", cc: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.cc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizePhone(%q) = %q, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q) failed: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
