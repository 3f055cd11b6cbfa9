package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var bookkeepingColumns = []Column{ //nolint:gochecknoglobals // test fixture
	{Name: "filename", Type: TypeText, NotNull: true},
	{Name: "applied", Type: TypeTimestamp, NotNull: true, DefaultNow: true},
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect dialect
		table   string
		want    string
	}{
		{
			name:    "postgres quotes identifiers",
			dialect: postgresDialect,
			table:   "_schema_patches",
			want: `CREATE TABLE IF NOT EXISTS "_schema_patches" ("filename" TEXT NOT NULL, ` +
				`"applied" TIMESTAMP NOT NULL DEFAULT now())`,
		},
		{
			name:    "postgres schema-qualified table",
			dialect: postgresDialect,
			table:   "admin.patches",
			want: `CREATE TABLE IF NOT EXISTS "admin"."patches" ("filename" TEXT NOT NULL, ` +
				`"applied" TIMESTAMP NOT NULL DEFAULT now())`,
		},
		{
			name:    "sqlite",
			dialect: sqliteDialect,
			table:   "_schema_patches",
			want: "CREATE TABLE IF NOT EXISTS _schema_patches (filename TEXT NOT NULL, " +
				"applied TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)",
		},
		{
			name:    "clickhouse adds engine",
			dialect: clickhouseDialect,
			table:   "_schema_patches",
			want: "CREATE TABLE IF NOT EXISTS _schema_patches (filename String NOT NULL, " +
				"applied DateTime NOT NULL DEFAULT now()) ENGINE = MergeTree ORDER BY tuple()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.dialect.createTableSQL(tt.table, bookkeepingColumns))
		})
	}
}

func TestSelectAllSQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `SELECT "filename", "applied" FROM "_schema_patches"`, postgresDialect.selectAllSQL("_schema_patches"))
	assert.Equal(t, "SELECT filename, applied FROM _schema_patches", sqliteDialect.selectAllSQL("_schema_patches"))
}

func TestInsertSQL_sortsColumnsAndNumbersPlaceholders(t *testing.T) {
	t.Parallel()

	fields := map[string]any{"filename": "01.sql", "applied": "now"}

	sql, args := postgresDialect.insertSQL("p", fields)
	assert.Equal(t, `INSERT INTO "p" ("applied", "filename") VALUES ($1, $2)`, sql)
	assert.Equal(t, []any{"now", "01.sql"}, args)

	sql, args = sqliteDialect.insertSQL("p", map[string]any{"filename": "01.sql"})
	assert.Equal(t, "INSERT INTO p (filename) VALUES (?)", sql)
	assert.Equal(t, []any{"01.sql"}, args)
}
