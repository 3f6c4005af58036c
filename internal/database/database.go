package database

import (
	"context"
	"errors"
	"fmt"
)

// Standard errors for database operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique index violation (wallet, token id).
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure.
	ErrQuery = errors.New("query error")

	// ErrGuard indicates a transaction aborted by one of its THROW guards.
	ErrGuard = errors.New("transaction guard failed")
)

// GuardError carries the code of the guard that cancelled a transaction
type GuardError struct {
	Code string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("transaction guard failed: %s", e.Code)
}

func (e *GuardError) Unwrap() error {
	return ErrGuard
}

// GuardCode returns the guard code carried by err, or "" if err is not a guard failure
func GuardCode(err error) string {
	var ge *GuardError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// Database defines the interface for database operations
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query executes a query and returns one {status, result} entry per statement
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// QueryOne executes a query and returns the first record of the first statement
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)

	// Execute runs a query without returning results (for mutations)
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
}

// Config holds database configuration
type Config struct {
	Host      string
	Port      string
	Scheme    string // ws or wss, default ws
	User      string
	Password  string
	Namespace string
	Database  string
}

// Endpoint returns the RPC endpoint URL for the configured host
func (c Config) Endpoint() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, c.Host, c.Port)
}
