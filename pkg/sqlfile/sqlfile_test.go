package sqlfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/b-infra/opskit/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMapping(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "orders", "tables.sql"), "CREATE TABLE orders (id INT);")
	writeFile(t, filepath.Join(root, "orders", "views.sql"), "CREATE VIEW v AS SELECT 1;")

	mapping, err := Mapping(root)
	require.NoError(t, err)

	assert.Len(t, mapping, 2)
	assert.Equal(t, filepath.Join(root, "orders", "tables.sql"), mapping["tables.sql"])
	assert.Equal(t, filepath.Join(root, "orders", "views.sql"), mapping["views.sql"])
}

func TestMapping_NameCollision(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "billing", "tables.sql"), "SELECT 1;")
	writeFile(t, filepath.Join(root, "shipping", "tables.sql"), "SELECT 2;")

	mapping, err := Mapping(root)
	require.NoError(t, err)

	// The first file walked keeps the plain name, the second gets the
	// directory prefix. Walk order is lexical, so billing wins.
	assert.Len(t, mapping, 2)
	assert.Equal(t, filepath.Join(root, "billing", "tables.sql"), mapping["tables.sql"])
	assert.Equal(t, filepath.Join(root, "shipping", "tables.sql"), mapping["shipping_tables.sql"])
}

func TestStatements(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "schema.sql"),
		"CREATE TABLE a (id INT);\n\nCREATE INDEX idx_a ON a (id);\n;\n  \n")

	mapping, err := Mapping(root)
	require.NoError(t, err)

	statements, err := Statements("schema.sql", mapping)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CREATE TABLE a (id INT);",
		"CREATE INDEX idx_a ON a (id);",
	}, statements)
}

func TestStatements_UnknownFile(t *testing.T) {
	_, err := Statements("missing.sql", map[string]string{})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "missing.sql")
}

func TestExecStatements(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "sqlmock")

	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX idx_a").WillReturnResult(sqlmock.NewResult(0, 0))

	err = ExecStatements(context.Background(), db, []string{
		"CREATE TABLE a (id INT);",
		"CREATE INDEX idx_a ON a (id);",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecStatements_StopsAtFirstFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "sqlmock")

	boom := errors.New("relation already exists")
	mock.ExpectExec("CREATE TABLE a").WillReturnError(boom)

	err = ExecStatements(context.Background(), db, []string{
		"CREATE TABLE a (id INT);",
		"CREATE INDEX idx_a ON a (id);",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
