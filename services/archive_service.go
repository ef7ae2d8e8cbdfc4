package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kbchat/models"
)

// summaryLimit caps the archived digest of one session.
const summaryLimit = 4000

// ArchiveService sweeps settled transcript turns out of DynamoDB into
// compact per-session Postgres rows.
type ArchiveService struct {
	postgresDB *sql.DB
	store      *TranscriptStore
	logger     *slog.Logger
}

// NewArchiveService connects to Postgres and prepares the summary table.
func NewArchiveService(postgresURI string, store *TranscriptStore, logger *slog.Logger) (*ArchiveService, error) {
	connStr := postgresURI
	if !strings.Contains(postgresURI, "sslmode=") {
		if strings.Contains(postgresURI, "?") {
			connStr += "&sslmode=disable"
		} else {
			connStr += "?sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %v", err)
	}

	if err := ensureSummaryTable(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &ArchiveService{postgresDB: db, store: store, logger: logger}, nil
}

func ensureSummaryTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_summaries (
			id TEXT PRIMARY KEY,
			session_id TEXT UNIQUE NOT NULL,
			summary TEXT NOT NULL,
			sources TEXT[] NOT NULL DEFAULT '{}',
			turn_count INT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create session_summaries: %v", err)
	}
	return nil
}

// Close releases the Postgres connection.
func (a *ArchiveService) Close() error {
	return a.postgresDB.Close()
}

// ProcessSessions archives every session whose turns are older than the
// cutoff. Sessions touched since the cutoff keep accumulating.
func (a *ArchiveService) ProcessSessions(ctx context.Context, cutoff time.Time) error {
	turns, err := a.store.TurnsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to load settled turns: %v", err)
	}
	if len(turns) == 0 {
		a.logger.Info("no settled sessions to archive")
		return nil
	}

	for sessionID, sessionTurns := range groupBySession(turns) {
		summary := BuildSummary(sessionTurns)
		if err := a.upsertSummary(ctx, summary); err != nil {
			a.logger.Error("failed to archive session", "session_id", sessionID, "error", err)
			continue
		}
		a.logger.Info("archived session", "session_id", sessionID, "turns", summary.TurnCount)
	}

	return nil
}

func (a *ArchiveService) upsertSummary(ctx context.Context, s models.SessionSummary) error {
	_, err := a.postgresDB.ExecContext(ctx, `
		INSERT INTO session_summaries (id, session_id, summary, sources, turn_count, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			sources = EXCLUDED.sources,
			turn_count = EXCLUDED.turn_count,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time`,
		s.ID, s.SessionID, s.Summary, s.Sources, s.TurnCount, s.StartTime, s.EndTime,
	)
	return err
}

func groupBySession(turns []models.Turn) map[string][]models.Turn {
	grouped := make(map[string][]models.Turn)
	for _, t := range turns {
		grouped[t.SessionID] = append(grouped[t.SessionID], t)
	}
	return grouped
}

// BuildSummary collapses one session's turns into a single archival row:
// a chronological digest plus the deduplicated list of cited sources.
func BuildSummary(turns []models.Turn) models.SessionSummary {
	sort.Slice(turns, func(i, j int) bool {
		return turns[i].Timestamp.Before(turns[j].Timestamp)
	})

	var digest strings.Builder
	seen := make(map[string]bool)
	sources := pq.StringArray{}

	for _, t := range turns {
		if digest.Len() < summaryLimit {
			fmt.Fprintf(&digest, "%s: %s\n", t.Role, t.Content)
		}
		for _, src := range t.Sources {
			if !seen[src] {
				seen[src] = true
				sources = append(sources, src)
			}
		}
	}

	summary := digest.String()
	if runes := []rune(summary); len(runes) > summaryLimit {
		summary = string(runes[:summaryLimit])
	}

	return models.SessionSummary{
		ID:        uuid.New().String(),
		SessionID: turns[0].SessionID,
		Summary:   summary,
		Sources:   sources,
		TurnCount: len(turns),
		StartTime: turns[0].Timestamp,
		EndTime:   turns[len(turns)-1].Timestamp,
	}
}
