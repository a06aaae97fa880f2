package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/thientv98/slack-oauth/internal/metrics"
	"github.com/thientv98/slack-oauth/internal/storage"
)

const (
	defaultStatsInterval = 5 * time.Minute
	statsQueryTimeout    = 10 * time.Second
)

// Stats is a snapshot of what the store holds
type Stats struct {
	Installations int       `json:"installations"`
	NewestInstall time.Time `json:"newest_install,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

// StatsReporter periodically refreshes the installation gauge
type StatsReporter struct {
	store    storage.InstallationStore
	interval time.Duration
	done     chan struct{}
}

func NewStatsReporter(store storage.InstallationStore) *StatsReporter {
	return &StatsReporter{
		store:    store,
		interval: defaultStatsInterval,
		done:     make(chan struct{}),
	}
}

// Start collects once immediately, then on every tick until stopped
func (s *StatsReporter) Start(ctx context.Context) {
	slog.Info("Starting stats reporter", slog.Duration("interval", s.interval))

	s.collectAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stats reporter stopped due to context cancellation")
			return
		case <-s.done:
			slog.Info("Stats reporter stopped")
			return
		case <-ticker.C:
			s.collectAndLog(ctx)
		}
	}
}

// Stop stops the reporter. It must be called at most once.
func (s *StatsReporter) Stop() {
	close(s.done)
}

func (s *StatsReporter) collectAndLog(ctx context.Context) {
	stats, err := s.Collect(ctx)
	if err != nil {
		slog.Error("Error collecting stats", "error", err)
		return
	}
	slog.Debug("Collected stats", slog.Int("installations", stats.Installations))
}

// Collect reads the store and updates the gauge
func (s *StatsReporter) Collect(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, statsQueryTimeout)
	defer cancel()

	installations, err := s.store.ListInstallations(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Installations: len(installations),
		CollectedAt:   time.Now().UTC(),
	}
	for _, inst := range installations {
		if inst.InstalledAt.After(stats.NewestInstall) {
			stats.NewestInstall = inst.InstalledAt
		}
	}

	metrics.InstalledWorkspaces.Set(float64(stats.Installations))
	return stats, nil
}

// SetInterval updates the collection interval before Start is called
func (s *StatsReporter) SetInterval(interval time.Duration) {
	if interval >= time.Second && interval <= time.Hour {
		s.interval = interval
		slog.Info("Updated stats reporter interval", slog.Duration("new_interval", interval))
	}
}
