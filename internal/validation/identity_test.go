package validation

import (
	"strings"
	"testing"
)

func TestIsValidIdentity(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{
			name:  "plain name",
			id:    "alice",
			valid: true,
		},
		{
			name:  "account address",
			id:    "0x5B38Da6a701c568545dCfcB03FcB875f56beddC4",
			valid: true,
		},
		{
			name:  "email-like",
			id:    "bob.smith@example-bank",
			valid: true,
		},
		{
			name:  "namespaced",
			id:    "seller:shop_42",
			valid: true,
		},
		{
			name:  "max length",
			id:    strings.Repeat("a", MaxIdentityLength),
			valid: true,
		},
		{
			name:  "too long",
			id:    strings.Repeat("a", MaxIdentityLength+1),
			valid: false,
		},
		{
			name:  "empty string",
			id:    "",
			valid: false,
		},
		{
			name:  "contains space",
			id:    "alice smith",
			valid: false,
		},
		{
			name:  "non-ascii",
			id:    "алиса",
			valid: false,
		},
		{
			name:  "path separator",
			id:    "a/b",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidIdentity(tt.id)
			if got != tt.valid {
				t.Fatalf("IsValidIdentity(%q) = %v, want %v", tt.id, got, tt.valid)
			}
		})
	}
}
