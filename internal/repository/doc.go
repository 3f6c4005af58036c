// Package repository implements SurrealDB storage for the Lootbound API.
//
// Each repository wraps a database.Database and owns the SurrealQL for one
// aggregate: players, parties with their member rows, equipment and lending
// orders. Methods return nil (not an error) when a record does not exist.
//
// # Atomicity
//
// Operations that must check and write together (party capacity, the
// one-active-party rule, one active order per item, borrowing) run as a
// single guarded transaction or a conditional UPDATE. Guard failures surface
// as *database.GuardError and are translated by the service layer.
//
// The memory subpackage implements the same contracts in-process for
// development and tests.
//
//	repo := repository.NewLendingRepository(db)
//	order, err := repo.Borrow(ctx, orderID, borrowerID, time.Now())
//	if order == nil {
//	    // no longer active or already expired
//	}
package repository
