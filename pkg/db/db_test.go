package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectRequiresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Connect(Config{})
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestWithMigrationsTable(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"", ""},
		{"postgres://db/orgperm", "postgres://db/orgperm?x-migrations-table=orgperm_migrations"},
		{"postgres://db/orgperm?sslmode=disable", "postgres://db/orgperm?sslmode=disable&x-migrations-table=orgperm_migrations"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, WithMigrationsTable(tt.url, "orgperm_migrations"))
	}
}
