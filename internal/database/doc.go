// Package database provides SurrealDB connectivity for the Lootbound API.
//
// The Database interface exposes three query methods:
//   - Query: one {status, result} entry per statement
//   - QueryOne: the first record of the first statement, ErrNotFound when empty
//   - Execute: mutations without results
//
// # Transactions
//
// TxBuilder assembles a BEGIN/COMMIT block sent as a single request, so the
// statements commit or roll back together. Guard adds an IF/THROW check that
// cancels the whole block; the failure comes back as a *GuardError carrying
// the guard code:
//
//	tx := database.NewTxBuilder().
//	    Var("party", partyID).
//	    Let("count", "count(SELECT id FROM party_member WHERE party = type::record($party))").
//	    Guard("$count >= $max", "party_full").
//	    Add("CREATE party_member CONTENT {...}")
//	_, err := tx.Execute(ctx, db)
//	if database.GuardCode(err) == "party_full" { ... }
//
// # Error Handling
//
//   - ErrNotFound: Record does not exist
//   - ErrDuplicate: Unique index violation
//   - ErrConnection: Database connection issues
//   - ErrQuery: Query execution failures
//   - ErrGuard: A transaction guard fired (see GuardError)
package database
