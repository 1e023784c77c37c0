package store

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	migrations, err := Migrations("")
	if err != nil {
		t.Fatalf("embedded migrations: %v", err)
	}
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version := match[1]
		direction := match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		if byVersion[version][direction] {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		byVersion[version][direction] = true
	}

	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}

	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

func TestMigrationFilesAreOrdered(t *testing.T) {
	migrations, err := Migrations("")
	if err != nil {
		t.Fatalf("embedded migrations: %v", err)
	}
	files, err := migrationFiles(migrations, ".up.sql")
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) < 2 || !strings.HasPrefix(files[0], "0001_") {
		t.Fatalf("unexpected order %v", files)
	}
	lots, err := fs.ReadFile(migrations, files[1])
	if err != nil {
		t.Fatalf("read %s: %v", files[1], err)
	}
	if !strings.Contains(string(lots), "PRIMARY KEY (sheet_id, grid, lot_id)") {
		t.Fatal("expected lots keyed by sheet, grid and lot")
	}
}

func TestMigrationsRejectsMissingDir(t *testing.T) {
	if _, err := Migrations("/nonexistent/migrations"); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
