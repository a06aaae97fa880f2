package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/thientv98/slack-oauth/internal/apperror"
	"github.com/thientv98/slack-oauth/internal/metrics"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store on a single shared connection pool
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens and pings the pool. sslMode, when set, overrides the
// sslmode parameter of databaseURL.
func OpenPostgres(ctx context.Context, databaseURL, sslMode string) (*sql.DB, error) {
	db, err := sql.Open("postgres", withSSLMode(databaseURL, sslMode))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func withSSLMode(databaseURL, sslMode string) string {
	if sslMode == "" {
		return databaseURL
	}

	parsedURL, err := url.Parse(databaseURL)
	if err != nil || parsedURL.Scheme == "" {
		return databaseURL
	}

	values := parsedURL.Query()
	values.Set("sslmode", sslMode)
	parsedURL.RawQuery = values.Encode()
	return parsedURL.String()
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InitSchema creates both tables if they do not exist yet
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	slog.Info("Initializing database schema...")

	createInstallationsTable := `
		CREATE TABLE IF NOT EXISTS slack_installations (
			id SERIAL PRIMARY KEY,
			team_id VARCHAR(255) UNIQUE NOT NULL,
			team_name VARCHAR(255) NOT NULL,
			access_token TEXT NOT NULL,
			bot_user_id VARCHAR(255),
			scope TEXT,
			installed_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := s.db.ExecContext(ctx, createInstallationsTable); err != nil {
		return fmt.Errorf("failed to create slack_installations table: %w", err)
	}

	createChannelConfigsTable := `
		CREATE TABLE IF NOT EXISTS channel_configs (
			id SERIAL PRIMARY KEY,
			team_id VARCHAR(255) NOT NULL,
			channel_id VARCHAR(255) NOT NULL,
			channel_name VARCHAR(255) NOT NULL,
			translate_on_reaction BOOLEAN DEFAULT FALSE,
			translate_on_new_message BOOLEAN DEFAULT FALSE,
			translate_on_mention BOOLEAN DEFAULT FALSE,
			source_language VARCHAR(10) DEFAULT 'auto',
			target_language VARCHAR(10) DEFAULT 'en',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(team_id, channel_id),
			FOREIGN KEY (team_id) REFERENCES slack_installations(team_id) ON DELETE CASCADE
		);
	`
	if _, err := s.db.ExecContext(ctx, createChannelConfigsTable); err != nil {
		return fmt.Errorf("failed to create channel_configs table: %w", err)
	}

	slog.Info("Database schema initialized successfully")
	return nil
}

// UpsertInstallation inserts the installation or replaces name, token, bot
// user and scope of the existing row for the same team. installed_at is kept.
func (s *PostgresStore) UpsertInstallation(ctx context.Context, inst *Installation) (err error) {
	defer observe("upsert_installation", time.Now(), &err)

	query := `
		INSERT INTO slack_installations (team_id, team_name, access_token, bot_user_id, scope, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (team_id)
		DO UPDATE SET
			team_name = EXCLUDED.team_name,
			access_token = EXCLUDED.access_token,
			bot_user_id = EXCLUDED.bot_user_id,
			scope = EXCLUDED.scope,
			updated_at = NOW()
		RETURNING installed_at, updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		inst.TeamID, inst.TeamName, inst.AccessToken, inst.BotUserID, inst.Scope,
	).Scan(&inst.InstalledAt, &inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert installation: %w: %w", apperror.ErrPersistence, err)
	}

	return nil
}

func (s *PostgresStore) GetInstallation(ctx context.Context, teamID string) (inst *Installation, err error) {
	defer observe("get_installation", time.Now(), &err)

	query := `
		SELECT team_id, team_name, access_token, bot_user_id, scope, installed_at, updated_at
		FROM slack_installations
		WHERE team_id = $1
	`

	inst, err = scanInstallation(s.db.QueryRowContext(ctx, query, teamID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installation: %w: %w", apperror.ErrPersistence, err)
	}

	return inst, nil
}

// ListInstallations returns every installation, most recently installed first
func (s *PostgresStore) ListInstallations(ctx context.Context) (installations []*Installation, err error) {
	defer observe("list_installations", time.Now(), &err)

	query := `
		SELECT team_id, team_name, access_token, bot_user_id, scope, installed_at, updated_at
		FROM slack_installations
		ORDER BY installed_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list installations: %w: %w", apperror.ErrPersistence, err)
	}
	defer rows.Close()

	installations = []*Installation{}
	for rows.Next() {
		inst, err := scanInstallation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installation: %w: %w", apperror.ErrPersistence, err)
		}
		installations = append(installations, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installations: %w: %w", apperror.ErrPersistence, err)
	}

	return installations, nil
}

// GetAccessToken returns the bearer token for a team, or ErrNotFound
func (s *PostgresStore) GetAccessToken(ctx context.Context, teamID string) (token string, err error) {
	defer observe("get_access_token", time.Now(), &err)

	err = s.db.QueryRowContext(ctx,
		`SELECT access_token FROM slack_installations WHERE team_id = $1`, teamID,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w: %w", apperror.ErrPersistence, err)
	}

	return token, nil
}

func (s *PostgresStore) GetChannelConfig(ctx context.Context, teamID, channelID string) (cfg *ChannelConfig, err error) {
	defer observe("get_channel_config", time.Now(), &err)

	query := `
		SELECT team_id, channel_id, channel_name, translate_on_reaction, translate_on_new_message,
			   translate_on_mention, source_language, target_language, created_at, updated_at
		FROM channel_configs
		WHERE team_id = $1 AND channel_id = $2
	`

	var (
		channelName          string
		createdAt, updatedAt time.Time
	)
	cfg = &ChannelConfig{}
	err = s.db.QueryRowContext(ctx, query, teamID, channelID).Scan(
		&cfg.TeamID, &cfg.ChannelID, &channelName,
		&cfg.TranslateOnReaction, &cfg.TranslateOnNewMessage, &cfg.TranslateOnMention,
		&cfg.SourceLanguage, &cfg.TargetLanguage, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel config: %w: %w", apperror.ErrPersistence, err)
	}

	cfg.ChannelName = &channelName
	cfg.CreatedAt = &createdAt
	cfg.UpdatedAt = &updatedAt
	return cfg, nil
}

// UpsertChannelConfig normalizes cfg and writes it keyed by (team, channel).
// The channel name is refreshed on every save.
func (s *PostgresStore) UpsertChannelConfig(ctx context.Context, cfg *ChannelConfig) (err error) {
	defer observe("upsert_channel_config", time.Now(), &err)

	cfg.Normalize()

	query := `
		INSERT INTO channel_configs (
			team_id, channel_id, channel_name, translate_on_reaction, translate_on_new_message,
			translate_on_mention, source_language, target_language, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (team_id, channel_id)
		DO UPDATE SET
			channel_name = EXCLUDED.channel_name,
			translate_on_reaction = EXCLUDED.translate_on_reaction,
			translate_on_new_message = EXCLUDED.translate_on_new_message,
			translate_on_mention = EXCLUDED.translate_on_mention,
			source_language = EXCLUDED.source_language,
			target_language = EXCLUDED.target_language,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	var createdAt, updatedAt time.Time
	err = s.db.QueryRowContext(ctx, query,
		cfg.TeamID, cfg.ChannelID, cfg.Name(),
		cfg.TranslateOnReaction, cfg.TranslateOnNewMessage, cfg.TranslateOnMention,
		cfg.SourceLanguage, cfg.TargetLanguage,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert channel config: %w: %w", apperror.ErrPersistence, err)
	}

	cfg.CreatedAt = &createdAt
	cfg.UpdatedAt = &updatedAt
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstallation(row rowScanner) (*Installation, error) {
	var (
		inst             Installation
		botUserID, scope sql.NullString
	)

	err := row.Scan(
		&inst.TeamID, &inst.TeamName, &inst.AccessToken, &botUserID, &scope,
		&inst.InstalledAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.BotUserID = botUserID.String
	inst.Scope = scope.String
	return &inst, nil
}

func observe(operation string, start time.Time, err *error) {
	status := "success"
	if *err != nil && !errors.Is(*err, ErrNotFound) {
		status = "error"
	}
	metrics.DatabaseOperations.WithLabelValues(operation, status).Inc()
	metrics.DatabaseOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
