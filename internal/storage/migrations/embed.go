package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// PostgresFS holds the ledger schema for the system of record.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the schema of the ledger event analytics store.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// migration is one embedded schema file.
type migration struct {
	name string
	sql  string
}

// load returns the non-empty .sql files under dir, ordered by name.
func load(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s schema files: %w", dir, err)
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema file %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, migration{name: entry.Name(), sql: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}
