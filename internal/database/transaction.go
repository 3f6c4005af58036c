package database

import (
	"context"
	"fmt"
	"strings"
)

// TxBuilder assembles statements into one BEGIN/COMMIT block that is sent as
// a single request. All statements share one variable map.
type TxBuilder struct {
	statements []string
	vars       map[string]interface{}
}

// NewTxBuilder creates an empty transaction builder
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{
		vars: make(map[string]interface{}),
	}
}

// Var binds a query variable
func (tb *TxBuilder) Var(name string, value interface{}) *TxBuilder {
	tb.vars[name] = value
	return tb
}

// Let binds the result of expr to $name for later statements
func (tb *TxBuilder) Let(name, expr string) *TxBuilder {
	return tb.Add(fmt.Sprintf("LET $%s = %s", name, expr))
}

// Guard cancels the transaction with code when cond holds
func (tb *TxBuilder) Guard(cond, code string) *TxBuilder {
	return tb.Add(fmt.Sprintf("IF %s { THROW \"guard:%s\" }", cond, code))
}

// Add appends a raw statement
func (tb *TxBuilder) Add(stmt string) *TxBuilder {
	tb.statements = append(tb.statements, strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
	return tb
}

// Len returns the number of statements added so far
func (tb *TxBuilder) Len() int {
	return len(tb.statements)
}

// Build returns the complete transaction query and its variables
func (tb *TxBuilder) Build() (string, map[string]interface{}) {
	if len(tb.statements) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range tb.statements {
		sb.WriteString(stmt)
		sb.WriteString(";\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	return sb.String(), tb.vars
}

// Execute runs the transaction. A fired guard surfaces as *GuardError.
func (tb *TxBuilder) Execute(ctx context.Context, db Database) ([]interface{}, error) {
	query, vars := tb.Build()
	if query == "" {
		return nil, nil
	}
	return db.Query(ctx, query, vars)
}
