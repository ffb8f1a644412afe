package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProducts(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"comma string", "PAN Verification, Aadhaar OKYC", []string{"PAN Verification", "Aadhaar OKYC"}},
		{"semicolon string", "PAN Verification;Aadhaar OKYC", []string{"PAN Verification", "Aadhaar OKYC"}},
		{"pipe string", "PAN Verification | Aadhaar OKYC", []string{"PAN Verification", "Aadhaar OKYC"}},
		{"array", []any{"PAN Verification", "Aadhaar OKYC"}, []string{"PAN Verification", "Aadhaar OKYC"}},
		{"string slice", []string{"PAN Verification"}, []string{"PAN Verification"}},
		{"array with delimited element", []any{"PAN Verification, GST Verification"}, []string{"PAN Verification", "GST Verification"}},
		{"array of objects", []any{map[string]any{"name": "Bank Verification"}}, []string{"Bank Verification"}},
		{"dedupe case-insensitive", "PAN Verification, pan verification,  PAN   Verification", []string{"PAN Verification"}},
		{"empty parts", ",,;|", nil},
		{"unsupported type", 12, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseProducts(tt.in))
		})
	}
}

func TestProductKey(t *testing.T) {
	assert.Equal(t, "aadhaar okyc", ProductKey("  Aadhaar   OKYC "))
	assert.Equal(t, "", ProductKey("   "))
}
