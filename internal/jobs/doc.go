// Package jobs implements background work that runs independently of HTTP
// request handling.
//
// # Jobs
//
//   - LendingSweeper: expires lending orders whose listing lifetime elapsed
//
// Jobs follow the same lifecycle: Start launches a ticker goroutine, Stop
// closes it and waits, RunOnce performs one pass synchronously. Failures are
// logged and retried on the next tick; they never stop the process.
//
//	sweeper := jobs.NewLendingSweeper(jobs.LendingSweeperConfig{
//	    Expirer:  lendingService,
//	    Interval: cfg.Lending.SweepInterval,
//	})
//	sweeper.Start()
//	defer sweeper.Stop()
package jobs
