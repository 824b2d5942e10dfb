package repository

import (
	"context"

	"github.com/civicfix/civicfix-server/internal/domain"
)

type timelineRepository struct {
	db dbtx
}

func (r *timelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO issue_timeline (id, issue_id, status, message, updated_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.IssueID,
		entry.Status,
		entry.Message,
		entry.UpdatedBy,
		entry.CreatedAt,
	)
	return mapPgError(err)
}

func (r *timelineRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, issue_id, status, message, updated_by, created_at
        FROM issue_timeline WHERE issue_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TimelineEntry{}
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IssueID,
			&entry.Status,
			&entry.Message,
			&entry.UpdatedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
