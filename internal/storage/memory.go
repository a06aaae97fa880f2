package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/thientv98/slack-oauth/internal/apperror"
)

// MemoryStore is a process-local Store with the same upsert and cascade
// semantics as PostgresStore. Used for local development (DATABASE_URL=memory://)
// and in tests.
type MemoryStore struct {
	mu            sync.RWMutex
	installations map[string]*Installation
	configs       map[configKey]*ChannelConfig
	now           func() time.Time
}

type configKey struct {
	teamID    string
	channelID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		installations: make(map[string]*Installation),
		configs:       make(map[configKey]*ChannelConfig),
		now:           time.Now,
	}
}

func (m *MemoryStore) UpsertInstallation(ctx context.Context, inst *Installation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stored, ok := m.installations[inst.TeamID]
	if !ok {
		stored = &Installation{TeamID: inst.TeamID, InstalledAt: now}
		m.installations[inst.TeamID] = stored
	}
	stored.TeamName = inst.TeamName
	stored.AccessToken = inst.AccessToken
	stored.BotUserID = inst.BotUserID
	stored.Scope = inst.Scope
	stored.UpdatedAt = now

	inst.InstalledAt = stored.InstalledAt
	inst.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryStore) GetInstallation(ctx context.Context, teamID string) (*Installation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.installations[teamID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (m *MemoryStore) ListInstallations(ctx context.Context) ([]*Installation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	installations := make([]*Installation, 0, len(m.installations))
	for _, inst := range m.installations {
		cp := *inst
		installations = append(installations, &cp)
	}
	sort.SliceStable(installations, func(i, j int) bool {
		return installations[i].InstalledAt.After(installations[j].InstalledAt)
	})
	return installations, nil
}

func (m *MemoryStore) GetAccessToken(ctx context.Context, teamID string) (string, error) {
	inst, err := m.GetInstallation(ctx, teamID)
	if err != nil {
		return "", err
	}
	return inst.AccessToken, nil
}

// DeleteInstallation removes a team and cascades to its channel configs
func (m *MemoryStore) DeleteInstallation(ctx context.Context, teamID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.installations, teamID)
	for key := range m.configs {
		if key.teamID == teamID {
			delete(m.configs, key)
		}
	}
}

func (m *MemoryStore) GetChannelConfig(ctx context.Context, teamID, channelID string) (*ChannelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.configs[configKey{teamID, channelID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (m *MemoryStore) UpsertChannelConfig(ctx context.Context, cfg *ChannelConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.installations[cfg.TeamID]; !ok {
		return fmt.Errorf("channel config references unknown team %s: %w", cfg.TeamID, apperror.ErrPersistence)
	}

	cfg.Normalize()

	now := m.now()
	key := configKey{cfg.TeamID, cfg.ChannelID}
	createdAt := now
	if existing, ok := m.configs[key]; ok && existing.CreatedAt != nil {
		createdAt = *existing.CreatedAt
	}
	name := cfg.Name()
	cfg.ChannelName = &name
	cfg.CreatedAt = &createdAt
	cfg.UpdatedAt = &now

	cp := *cfg
	m.configs[key] = &cp
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
