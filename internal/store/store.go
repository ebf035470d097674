// Package store persists per-group settings and meme send history in sqlite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// GroupSettings is one group's persisted configuration.
type GroupSettings struct {
	ChatID           int64
	Title            string
	BotEnabled       bool
	AnonymousEnabled bool
	AnonymousToken   string
	AIEnabled        bool
	AIStyleUsername  string
}

// Store wraps the sqlite database. Safe for concurrent use — database/sql
// pools connections and sqlite serializes writers.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// NewMigrator returns a standalone migrator over the embedded migrations,
// for the CLI's migrate subcommands.
func NewMigrator(path string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureGroup creates the group row if missing, refreshes a non-empty title,
// and returns the current settings.
func (s *Store) EnsureGroup(ctx context.Context, chatID int64, title string) (GroupSettings, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO groups (chat_id, title) VALUES (?, ?)`,
		chatID, title)
	if err != nil {
		return GroupSettings{}, fmt.Errorf("ensure group: %w", err)
	}
	if title != "" {
		_, err = s.db.ExecContext(ctx,
			`UPDATE groups SET title = ? WHERE chat_id = ?`, title, chatID)
		if err != nil {
			return GroupSettings{}, fmt.Errorf("refresh title: %w", err)
		}
	}

	settings, err := s.GetGroup(ctx, chatID)
	if err != nil {
		return GroupSettings{}, err
	}
	if settings == nil {
		return GroupSettings{}, fmt.Errorf("group %d missing after insert", chatID)
	}
	return *settings, nil
}

const groupColumns = `chat_id, title, bot_enabled, anonymous_enabled,
	COALESCE(anonymous_token, ''), ai_enabled, ai_style_username`

// GetGroup returns the group's settings, or nil when unknown.
func (s *Store) GetGroup(ctx context.Context, chatID int64) (*GroupSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE chat_id = ?`, chatID)
	return scanGroup(row)
}

// GetGroupByAnonymousToken resolves a deep-link token to its group.
func (s *Store) GetGroupByAnonymousToken(ctx context.Context, token string) (*GroupSettings, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE anonymous_token = ?`, token)
	return scanGroup(row)
}

func scanGroup(row *sql.Row) (*GroupSettings, error) {
	var g GroupSettings
	var botEnabled, anonEnabled, aiEnabled int
	err := row.Scan(&g.ChatID, &g.Title, &botEnabled, &anonEnabled,
		&g.AnonymousToken, &aiEnabled, &g.AIStyleUsername)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan group: %w", err)
	}
	g.BotEnabled = botEnabled != 0
	g.AnonymousEnabled = anonEnabled != 0
	g.AIEnabled = aiEnabled != 0
	return &g, nil
}

// SetBotEnabled flips the master enable flag.
func (s *Store) SetBotEnabled(ctx context.Context, chatID int64, enabled bool) error {
	return s.setFlag(ctx, chatID, "bot_enabled", enabled)
}

// SetAnonymousEnabled flips the anonymous-message flag.
func (s *Store) SetAnonymousEnabled(ctx context.Context, chatID int64, enabled bool) error {
	return s.setFlag(ctx, chatID, "anonymous_enabled", enabled)
}

// SetAIEnabled flips the style-reply flag.
func (s *Store) SetAIEnabled(ctx context.Context, chatID int64, enabled bool) error {
	return s.setFlag(ctx, chatID, "ai_enabled", enabled)
}

func (s *Store) setFlag(ctx context.Context, chatID int64, column string, enabled bool) error {
	if _, err := s.EnsureGroup(ctx, chatID, ""); err != nil {
		return err
	}
	v := 0
	if enabled {
		v = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE groups SET `+column+` = ? WHERE chat_id = ?`, v, chatID)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return nil
}

// SetAIStyleUsername stores the handle whose style the bot mimics.
func (s *Store) SetAIStyleUsername(ctx context.Context, chatID int64, username string) error {
	if _, err := s.EnsureGroup(ctx, chatID, ""); err != nil {
		return err
	}
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	_, err := s.db.ExecContext(ctx,
		`UPDATE groups SET ai_style_username = ? WHERE chat_id = ?`, username, chatID)
	if err != nil {
		return fmt.Errorf("set ai style: %w", err)
	}
	return nil
}

// EnsureAnonymousToken returns the group's deep-link token, generating one
// if needed. The unique index makes collisions an insert error, so a few
// retries suffice.
func (s *Store) EnsureAnonymousToken(ctx context.Context, chatID int64) (string, error) {
	settings, err := s.EnsureGroup(ctx, chatID, "")
	if err != nil {
		return "", err
	}
	if settings.AnonymousToken != "" {
		return settings.AnonymousToken, nil
	}

	for attempt := 0; attempt < 10; attempt++ {
		token := strings.ReplaceAll(uuid.NewString(), "-", "")
		_, err := s.db.ExecContext(ctx,
			`UPDATE groups SET anonymous_token = ? WHERE chat_id = ?`, token, chatID)
		if err == nil {
			return token, nil
		}
	}
	return "", fmt.Errorf("generate anonymous token for %d", chatID)
}

// RecentCandidateIDs returns candidate ids sent to the chat at or after since.
func (s *Store) RecentCandidateIDs(ctx context.Context, chatID int64, since time.Time) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id FROM meme_history WHERE chat_id = ? AND sent_at >= ?`,
		chatID, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// RecordSent appends a history record for a delivered candidate and compacts
// the chat's rows past the retention horizon.
func (s *Store) RecordSent(ctx context.Context, chatID int64, candidateID string, at time.Time) error {
	if candidateID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meme_history (chat_id, candidate_id, sent_at) VALUES (?, ?, ?)`,
		chatID, candidateID, at.Unix())
	if err != nil {
		return fmt.Errorf("record sent: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM meme_history WHERE chat_id = ? AND sent_at < ?`,
		chatID, at.Add(-HistoryRetention).Unix())
	if err != nil {
		return fmt.Errorf("compact history: %w", err)
	}
	return nil
}

// PruneHistory deletes history rows older than cutoff and reports how many.
func (s *Store) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM meme_history WHERE sent_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
