package database

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

// Token and session ids are matched exactly; MySQL's default utf8mb4
// collation would compare them case-insensitively.
func TestMySQLIdentifierColumnsUseBinaryCollation(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "mysql", "*.sql"))
	if err != nil {
		t.Fatalf("failed to glob migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no mysql migrations found")
	}

	column := regexp.MustCompile(`(?m)^\s*(token|id)\s+VARCHAR\(\d+\)(.*)$`)
	binary := regexp.MustCompile(`COLLATE utf8mb4_bin`)

	checked := 0
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("failed to read %s: %v", file, err)
		}
		for _, m := range column.FindAllStringSubmatch(string(content), -1) {
			checked++
			if !binary.MatchString(m[2]) {
				t.Errorf("%s: column %s is not declared with COLLATE utf8mb4_bin: %q", filepath.Base(file), m[1], m[0])
			}
		}
	}

	// registration_tokens.token, leader_tokens.token, leader_sessions.id and .token
	if checked != 4 {
		t.Errorf("checked %d identifier columns, want 4", checked)
	}
}
