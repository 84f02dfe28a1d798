// Package sqlfile enumerates .sql files under a directory tree, splits
// them into individual statements and executes them against a database.
package sqlfile

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/b-infra/opskit/pkg/errors"
)

// Mapping walks root recursively and returns file name → full path.
// A file name seen in more than one directory is disambiguated by
// prefixing the containing directory: "directory_filename.sql".
func Mapping(root string) (map[string]string, error) {
	mapping := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if _, exists := mapping[name]; exists {
			name = filepath.Base(filepath.Dir(path)) + "_" + name
		}
		mapping[name] = path
		return nil
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to walk sql file directory").WithCause(err)
	}

	return mapping, nil
}

// Statements reads the named file through the mapping and splits its
// contents on ";" into individual statements, each with the terminator
// re-appended. Blank fragments are dropped.
func Statements(fileName string, mapping map[string]string) ([]string, error) {
	path, ok := mapping[fileName]
	if !ok {
		return nil, errors.NewValidationError(fileName + " not found in the directory")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInternalError("failed to read sql file").WithCause(err)
	}

	var statements []string
	for _, fragment := range strings.Split(string(content), ";") {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		statements = append(statements, fragment+";")
	}

	return statements, nil
}

// ExecStatements runs the statements in order, stopping at the first
// failure. The failing statement is recorded on the returned error.
func ExecStatements(ctx context.Context, db sqlx.ExecerContext, statements []string) error {
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return errors.NewExternalError("postgres", "statement execution failed").
				WithCause(err).
				WithDetail("statement", statement)
		}
	}
	return nil
}
