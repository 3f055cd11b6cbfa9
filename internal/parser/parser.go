// Package parser checks patch files against the PostgreSQL grammar.
package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/chbrown/sql-patch/internal/patch"
)

// ParseResult holds the parsed AST and original SQL.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   sql,
	}, nil
}

// Kinds returns the node type of each statement, e.g. "CreateStmt".
func (r *ParseResult) Kinds() []string {
	kinds := make([]string, 0, len(r.Stmts))

	for _, stmt := range r.Stmts {
		name := fmt.Sprintf("%T", stmt.GetStmt().GetNode())
		kinds = append(kinds, strings.TrimPrefix(name, "*pg_query.Node_"))
	}

	return kinds
}

// FileResult is the outcome of checking one patch file.
type FileResult struct {
	Filename string
	Kinds    []string
	Err      error
}

// CheckDir parses every patch file in dir, in application order. A file that
// fails to read or parse is reported in its FileResult; only a directory
// read failure is returned as an error.
func CheckDir(dir string) ([]FileResult, error) {
	names, err := patch.List(dir)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, 0, len(names))

	for _, name := range names {
		res := FileResult{Filename: name}

		sql, err := patch.Read(dir, name)
		if err != nil {
			res.Err = err
			results = append(results, res)

			continue
		}

		parsed, err := Parse(sql)
		if err != nil {
			res.Err = err
		} else {
			res.Kinds = parsed.Kinds()
		}

		results = append(results, res)
	}

	return results, nil
}
