package gravity

import (
	"fmt"
	"strings"
)

// ColumnDef defines a single column for a ledger table.
type ColumnDef struct {
	// Name is the column name
	Name string

	// Type is the ClickHouse data type (e.g., "UInt64", "String", "DateTime64(6)")
	Type string

	// Codec is the optional compression codec (e.g., "ZSTD(1)", "Delta, ZSTD(3)")
	Codec string

	// PgType is the PostgreSQL type used when the ledger lives in Postgres
	PgType string
}

// SQL returns the ClickHouse column definition for CREATE TABLE statements.
// Example: "voter String CODEC(ZSTD(1))"
func (c ColumnDef) SQL() string {
	if c.Codec != "" {
		return fmt.Sprintf("%s %s CODEC(%s)", c.Name, c.Type, c.Codec)
	}
	return fmt.Sprintf("%s %s", c.Name, c.Type)
}

// PgSQL returns the PostgreSQL column definition.
func (c ColumnDef) PgSQL() string {
	return fmt.Sprintf("%s %s", c.Name, c.PgType)
}

// ColumnsToSchemaSQL renders ClickHouse column definitions for CREATE TABLE.
func ColumnsToSchemaSQL(columns []ColumnDef) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col.SQL()
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnsToPgSchemaSQL renders PostgreSQL column definitions for CREATE TABLE.
func ColumnsToPgSchemaSQL(columns []ColumnDef) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col.PgSQL()
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnNames returns the comma separated column list used in SELECT statements.
func ColumnNames(columns []ColumnDef) string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}
	return strings.Join(names, ", ")
}
