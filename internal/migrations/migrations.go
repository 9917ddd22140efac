package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Migration is one embedded schema file
type Migration struct {
	Name      string
	Statement string
}

// All returns every embedded migration ordered by file name.
// Every statement is written with IF NOT EXISTS so applying the set twice is a no-op.
func All() ([]Migration, error) {
	return load(migrationsFS, "sql")
}

func load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		statement := strings.TrimSpace(string(content))
		if statement == "" {
			continue
		}
		migrations = append(migrations, Migration{Name: name, Statement: statement})
	}

	if len(migrations) == 0 {
		return nil, fmt.Errorf("no migrations found in %s", dir)
	}
	return migrations, nil
}
