package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"campusvote/internal/platform/postgres"
)

// PostgresStore persists the trail in the audit_events table.
type PostgresStore struct {
	db postgres.DBTX
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	var meta []byte
	if e.Meta != nil {
		var err error
		meta, err = json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("marshal audit meta: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor_id, action, entity_type, entity_id, meta, ip, user_agent, occurred_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.ActorID, e.Action, e.EntityType, e.EntityID, meta, e.IP, e.UserAgent, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(actor_id::text, ''), action, entity_type, COALESCE(entity_id, ''),
		       meta, COALESCE(ip, ''), COALESCE(user_agent, ''), occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&meta, &e.IP, &e.UserAgent, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal audit meta: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
