package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidDatabaseName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"crm", true},
		{"shop_2024", true},
		{"app.prod-eu$1", true},
		{"_internal", true},
		{strings.Repeat("a", 63), true},
		{strings.Repeat("a", 64), false},
		{"", false},
		{"--all-databases", false},
		{"../etc", false},
		{"sales db", false},
		{"a;b", false},
		{"ünïcode", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidDatabaseName(tt.name), "%q", tt.name)
	}
}
