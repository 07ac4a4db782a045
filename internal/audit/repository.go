package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/odyssey-erp/peopledesk/internal/platform/db"
)

const timelineSelect = `
SELECT a.occurred_at, a.actor_id, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id
WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR a.occurred_at < $2)
  AND ($3::bigint IS NULL OR a.actor_id = $3)
  AND ($4::text IS NULL OR a.entity = $4)
  AND ($5::text IS NULL OR a.entity_id = $5)
  AND ($6::text IS NULL OR a.action = $6)
ORDER BY a.occurred_at DESC, a.id DESC`

// WindowParams selects one page of the timeline.
type WindowParams struct {
	Filters TimelineFilters
	Offset  int
	Limit   int
}

// PGRepository reads audit_logs.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a repository over conn.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// TimelineWindow returns at most p.Limit rows starting at p.Offset.
func (r *PGRepository) TimelineWindow(ctx context.Context, p WindowParams) ([]TimelineRow, error) {
	args := append(filterArgs(p.Filters), p.Limit, p.Offset)
	rows, err := r.db.Query(ctx, timelineSelect+` LIMIT $7 OFFSET $8`, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline window: %w", err)
	}
	return collectRows(rows)
}

// TimelineAll returns every row matching filters.
func (r *PGRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	rows, err := r.db.Query(ctx, timelineSelect, filterArgs(filters)...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline all: %w", err)
	}
	return collectRows(rows)
}

func collectRows(rows pgx.Rows) ([]TimelineRow, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			tr   TimelineRow
			at   pgtype.Timestamptz
			meta []byte
		)
		if err := row.Scan(&at, &tr.ActorID, &tr.ActorEmail, &tr.Action, &tr.Entity, &tr.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if at.Valid {
			tr.At = at.Time
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &tr.Meta); err != nil {
				return TimelineRow{}, err
			}
		}
		return tr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: scan timeline: %w", err)
	}
	return out, nil
}

func filterArgs(f TimelineFilters) []any {
	var actor pgtype.Int8
	if f.ActorID > 0 {
		actor = pgtype.Int8{Int64: f.ActorID, Valid: true}
	}
	return []any{
		toPgTime(f.From),
		toPgTime(f.To),
		actor,
		optionalText(f.Entity),
		optionalText(f.EntityID),
		optionalText(f.Action),
	}
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
