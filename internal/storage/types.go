package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/thientv98/slack-oauth/internal/apperror"
)

const (
	DefaultSourceLanguage = "auto"
	DefaultTargetLanguage = "en"
)

// ErrNotFound is returned when no row matches the lookup key
var ErrNotFound = fmt.Errorf("storage: %w", apperror.ErrNotFound)

// Installation is one workspace's OAuth grant. TeamID is unique.
type Installation struct {
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	AccessToken string    `json:"access_token"`
	BotUserID   string    `json:"bot_user_id"`
	Scope       string    `json:"scope"`
	InstalledAt time.Time `json:"installed_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChannelConfig holds the translation triggers for one (team, channel) pair
type ChannelConfig struct {
	TeamID                string     `json:"-"`
	ChannelID             string     `json:"channel_id"`
	ChannelName           *string    `json:"channel_name"`
	TranslateOnReaction   bool       `json:"translate_on_reaction"`
	TranslateOnNewMessage bool       `json:"translate_on_new_message"`
	TranslateOnMention    bool       `json:"translate_on_mention"`
	SourceLanguage        string     `json:"source_language"`
	TargetLanguage        string     `json:"target_language"`
	CreatedAt             *time.Time `json:"created_at"`
	UpdatedAt             *time.Time `json:"updated_at"`
}

// DefaultChannelConfig is the configuration in effect for a channel that was
// never saved. It is never persisted by the store.
func DefaultChannelConfig(teamID, channelID string) *ChannelConfig {
	return &ChannelConfig{
		TeamID:              teamID,
		ChannelID:           channelID,
		TranslateOnReaction: true,
		SourceLanguage:      DefaultSourceLanguage,
		TargetLanguage:      DefaultTargetLanguage,
	}
}

// Normalize enforces the save-time invariants: at least one trigger is on
// (reaction is forced when none are) and languages are never empty.
func (c *ChannelConfig) Normalize() {
	if !c.TranslateOnReaction && !c.TranslateOnNewMessage && !c.TranslateOnMention {
		c.TranslateOnReaction = true
	}
	if c.SourceLanguage == "" {
		c.SourceLanguage = DefaultSourceLanguage
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = DefaultTargetLanguage
	}
}

// EnabledTriggers lists the enabled triggers in display form
func (c *ChannelConfig) EnabledTriggers() []string {
	var enabled []string
	if c.TranslateOnReaction {
		enabled = append(enabled, "🌐 Translate when reacting with :globe_with_meridians:")
	}
	if c.TranslateOnNewMessage {
		enabled = append(enabled, "📝 Translate every new message")
	}
	if c.TranslateOnMention {
		enabled = append(enabled, "🔔 Translate when the app is mentioned")
	}
	return enabled
}

// Name returns the channel name or "" when unknown
func (c *ChannelConfig) Name() string {
	if c.ChannelName == nil {
		return ""
	}
	return *c.ChannelName
}

// InstallationStore is CRUD over workspace installations
type InstallationStore interface {
	UpsertInstallation(ctx context.Context, inst *Installation) error
	GetInstallation(ctx context.Context, teamID string) (*Installation, error)
	ListInstallations(ctx context.Context) ([]*Installation, error)
	GetAccessToken(ctx context.Context, teamID string) (string, error)
}

// ChannelConfigStore is CRUD over per-channel translation settings.
// GetChannelConfig returns ErrNotFound when the channel was never saved.
type ChannelConfigStore interface {
	GetChannelConfig(ctx context.Context, teamID, channelID string) (*ChannelConfig, error)
	UpsertChannelConfig(ctx context.Context, cfg *ChannelConfig) error
}

type Store interface {
	InstallationStore
	ChannelConfigStore
	Close() error
}
