package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDB struct {
	query string
	vars  map[string]interface{}
	err   error
}

func (r *recordingDB) Connect(ctx context.Context) error { return nil }
func (r *recordingDB) Close() error                      { return nil }
func (r *recordingDB) Ping(ctx context.Context) error    { return nil }

func (r *recordingDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	r.query = query
	r.vars = vars
	return nil, r.err
}

func (r *recordingDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	_, err := r.Query(ctx, query, vars)
	return nil, err
}

func (r *recordingDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	_, err := r.Query(ctx, query, vars)
	return err
}

func TestTxBuilder_Build_WrapsStatements(t *testing.T) {
	t.Parallel()

	tb := NewTxBuilder().
		Var("party", "party:1").
		Let("count", "count(SELECT id FROM party_member WHERE party = type::record($party))").
		Guard("$count >= 4", "party_full").
		Add("CREATE party_member CONTENT { party: type::record($party) };")

	query, vars := tb.Build()

	require.Equal(t, 3, tb.Len())
	assert.True(t, strings.HasPrefix(query, "BEGIN TRANSACTION;\n"))
	assert.True(t, strings.HasSuffix(query, "COMMIT TRANSACTION;"))
	assert.Contains(t, query, "LET $count = count(")
	assert.Contains(t, query, `IF $count >= 4 { THROW "guard:party_full" };`)
	assert.NotContains(t, query, ";;", "trailing semicolons should not double up")
	assert.Equal(t, "party:1", vars["party"])
}

func TestTxBuilder_Execute_Empty(t *testing.T) {
	t.Parallel()

	db := &recordingDB{}
	res, err := NewTxBuilder().Execute(context.Background(), db)

	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, db.query, "empty builder should not hit the database")
}

func TestTxBuilder_Execute_PropagatesGuard(t *testing.T) {
	t.Parallel()

	db := &recordingDB{err: &GuardError{Code: "already_member"}}
	_, err := NewTxBuilder().Add("RETURN 1").Execute(context.Background(), db)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGuard))
	assert.Equal(t, "already_member", GuardCode(err))
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want error
		code string
	}{
		{`An error occurred: guard:party_full`, ErrGuard, "party_full"},
		{"Database index `player_wallet` already contains '0xabc'", ErrDuplicate, ""},
		{"Parse error: unexpected token", ErrQuery, ""},
		{"", ErrQuery, ""},
	}

	for _, tt := range tests {
		err := classifyError(tt.msg)
		assert.True(t, errors.Is(err, tt.want), "classifyError(%q) = %v", tt.msg, err)
		assert.Equal(t, tt.code, GuardCode(err))
	}
}

func TestGuardCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("failed to add member: %w", &GuardError{Code: "party_inactive"})
	assert.Equal(t, "party_inactive", GuardCode(err))
	assert.Equal(t, "", GuardCode(errors.New("other")))
}

func TestFirstRecord(t *testing.T) {
	t.Parallel()

	rec := map[string]interface{}{"id": "player:1"}
	got, err := FirstRecord([]interface{}{map[string]interface{}{"status": "OK", "result": []interface{}{rec}}})
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = FirstRecord([]interface{}{map[string]interface{}{"status": "OK", "result": []interface{}{}}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = FirstRecord(nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfig_Endpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ws://localhost:8000", Config{Host: "localhost", Port: "8000"}.Endpoint())
	assert.Equal(t, "wss://db.example:443", Config{Host: "db.example", Port: "443", Scheme: "wss"}.Endpoint())
}
