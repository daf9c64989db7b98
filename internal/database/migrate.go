package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("direction must be 'up' or 'down', got %q", s)
}

// Migrate executes every *.<direction>.sql file in fsys, in name order for up
// and reverse order for down. It returns the applied file names.
func Migrate(ctx context.Context, db Querier, fsys fs.FS, direction Direction) ([]string, error) {
	files, err := MigrationFiles(fsys, direction)
	if err != nil {
		return nil, err
	}

	for i, filename := range files {
		content, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return files[:i], fmt.Errorf("read migration file %s: %w", filename, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return files[:i], fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return files, nil
}

func MigrationFiles(fsys fs.FS, direction Direction) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	suffix := fmt.Sprintf(".%s.sql", direction)
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if direction == Down {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}
	return files, nil
}
