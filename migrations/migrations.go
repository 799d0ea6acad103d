// Package migrations embeds the Postgres schema of the optional database mirror.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed *.sql
var files embed.FS

// Load returns the SQL of the schema migration for direction "up" or "down"
func Load(direction string) (string, error) {
	switch direction {
	case "up", "down":
	default:
		return "", fmt.Errorf("unknown migration direction %q", direction)
	}
	b, err := files.ReadFile("001_create_schema." + direction + ".sql")
	if err != nil {
		return "", fmt.Errorf("failed to read migration: %w", err)
	}
	return string(b), nil
}
