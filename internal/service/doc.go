// Package service implements the business logic of the Lootbound API.
//
// # Services
//
//   - PartyService: party lifecycle (create, join, leave with leader
//     succession, disband)
//   - LendingService: lending-order lifecycle (list, borrow, expire, cancel)
//     and the marketplace query
//   - LootService: loot rolls, minting through the chain gateway, equipment reads
//   - PlayerService: wallet-keyed player identity and the leaderboard
//
// Each constructor takes a config struct with its repository and collaborator
// dependencies. Services define their own repository interfaces so tests can
// substitute mocks or the in-memory store.
//
// # Serialization
//
// Mutations on one aggregate (a party, an equipment item, an order) run under
// a KeyedMutex entry for that aggregate. Store writes are single atomic
// statements or guarded transactions, so correctness across processes does not
// depend on the in-process lock.
//
// # Events
//
// After a transition commits, the service publishes a model.DomainEvent to its
// EventPublisher while still holding the aggregate lock, which keeps events
// for one aggregate in commit order.
//
// # Error Handling
//
// Services return the sentinel errors in errors.go, wrapped with context where
// useful. Validation failures are *ValidationError, which matches
// ErrInvalidInput under errors.Is.
package service
