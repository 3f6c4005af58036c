package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// OrderExpirer marks overdue lending orders expired and reports how many changed
type OrderExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// LendingSweeper periodically expires active lending orders whose
// expires_at has passed, so the marketplace stops showing them even when
// nobody tries to borrow.
type LendingSweeper struct {
	expirer    OrderExpirer
	interval   time.Duration
	startDelay time.Duration
	timeout    time.Duration
	logger     *slog.Logger
	stopCh     chan struct{}
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

// LendingSweeperConfig holds configuration for the sweeper
type LendingSweeperConfig struct {
	Expirer    OrderExpirer
	Interval   time.Duration // Defaults to 5m
	StartDelay time.Duration // Delay before the first sweep, defaults to 5s
	Timeout    time.Duration // Per-sweep deadline, defaults to 2m
	Logger     *slog.Logger
}

// NewLendingSweeper creates a new lending sweeper job
func NewLendingSweeper(cfg LendingSweeperConfig) *LendingSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.StartDelay < 0 {
		cfg.StartDelay = 0
	} else if cfg.StartDelay == 0 {
		cfg.StartDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LendingSweeper{
		expirer:    cfg.Expirer,
		interval:   cfg.Interval,
		startDelay: cfg.StartDelay,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the sweeper. Calling it on a running sweeper is a no-op.
func (s *LendingSweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	s.logger.Info("lending sweeper started", slog.Duration("interval", s.interval))
}

// Stop halts the sweeper and waits for an in-flight sweep to finish
func (s *LendingSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("lending sweeper stopped")
}

func (s *LendingSweeper) run() {
	defer s.wg.Done()

	select {
	case <-time.After(s.startDelay):
	case <-s.stopCh:
		return
	}
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *LendingSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("lending sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("expired stale lending orders", slog.Int("count", n))
	}
}

// RunOnce performs a single sweep (for testing or manual trigger)
func (s *LendingSweeper) RunOnce(ctx context.Context) (int, error) {
	return s.expirer.ExpireStale(ctx)
}

// IsRunning returns whether the sweeper is running
func (s *LendingSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
