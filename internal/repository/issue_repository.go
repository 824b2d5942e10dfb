package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civicfix/civicfix-server/internal/domain"
)

const issueColumns = `id, title, description, category, location, image_url, reporter_email, reporter_name,
               status, is_boosted, upvotes, voters, assigned_staff_email, assigned_staff_name, assigned_at,
               created_at, updated_at`

type issueRepository struct {
	db dbtx
}

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (id, title, description, category, location, image_url, reporter_email, reporter_name,
                            status, is_boosted, upvotes, voters, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	voters := issue.Voters
	if voters == nil {
		voters = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		issue.ID,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Location,
		issue.ImageURL,
		issue.ReporterEmail,
		issue.ReporterName,
		issue.Status,
		issue.IsBoosted,
		issue.Upvotes,
		voters,
		issue.CreatedAt,
		issue.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	issue, err := scanIssue(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return issue, nil
}

// buildIssueWhere renders filter as a WHERE clause with positional arguments.
// likeEscaper makes search text match literally, as the Mongo and memory stores do.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildIssueWhere(filter IssueFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.ReporterEmail != nil {
		args = append(args, *filter.ReporterEmail)
		clauses = append(clauses, fmt.Sprintf("reporter_email=$%d", len(args)))
	}
	if filter.AssigneeEmail != nil {
		args = append(args, *filter.AssigneeEmail)
		clauses = append(clauses, fmt.Sprintf("assigned_staff_email=$%d", len(args)))
	}
	if filter.Boosted != nil {
		args = append(args, *filter.Boosted)
		clauses = append(clauses, fmt.Sprintf("is_boosted=$%d", len(args)))
	}
	if search := filter.search(); search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(LOWER(title) LIKE %[1]s ESCAPE '\' OR LOWER(description) LIKE %[1]s ESCAPE '\')`, placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	where, args := buildIssueWhere(filter)
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE %s ORDER BY is_boosted DESC, created_at DESC, id LIMIT %d OFFSET %d`,
		issueColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *issue)
	}
	return result, rows.Err()
}

func (r *issueRepository) Count(ctx context.Context, filter IssueFilter) (int64, error) {
	where, args := buildIssueWhere(filter)
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM issues WHERE `+where, args...).Scan(&count)
	return count, err
}

func (r *issueRepository) UpdateDetails(ctx context.Context, issue *domain.Issue) error {
	const query = `
        UPDATE issues SET title=$1, description=$2, category=$3, location=$4, image_url=$5, updated_at=$6
        WHERE id=$7`
	cmd, err := r.db.Exec(ctx, query,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Location,
		issue.ImageURL,
		issue.UpdatedAt,
		issue.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *issueRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.IssueStatus) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE issues SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		to, nowUTC(), id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *issueRepository) SetStatus(ctx context.Context, id string, to domain.IssueStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE issues SET status=$1, updated_at=$2 WHERE id=$3`, to, nowUTC(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *issueRepository) Assign(ctx context.Context, id string, assignment domain.StaffAssignment) (bool, error) {
	const query = `
        UPDATE issues SET assigned_staff_email=$1, assigned_staff_name=$2, assigned_at=$3, updated_at=$3
        WHERE id=$4 AND assigned_staff_email IS NULL`
	cmd, err := r.db.Exec(ctx, query, assignment.Email, assignment.Name, assignment.AssignedAt, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *issueRepository) AddVoter(ctx context.Context, id, voter string) (bool, error) {
	const query = `
        UPDATE issues SET upvotes=upvotes+1, voters=array_append(voters, $2)
        WHERE id=$1 AND NOT ($2 = ANY(voters))`
	cmd, err := r.db.Exec(ctx, query, id, voter)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *issueRepository) MarkBoosted(ctx context.Context, id string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE issues SET is_boosted=TRUE, updated_at=$1 WHERE id=$2 AND is_boosted=FALSE`,
		nowUTC(), id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *issueRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM issues WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var (
		issue         domain.Issue
		assigneeEmail *string
		assigneeName  *string
		assignedAt    *time.Time
	)
	if err := row.Scan(
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Location,
		&issue.ImageURL,
		&issue.ReporterEmail,
		&issue.ReporterName,
		&issue.Status,
		&issue.IsBoosted,
		&issue.Upvotes,
		&issue.Voters,
		&assigneeEmail,
		&assigneeName,
		&assignedAt,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if assigneeEmail != nil {
		issue.AssignedStaff = &domain.StaffAssignment{Email: *assigneeEmail}
		if assigneeName != nil {
			issue.AssignedStaff.Name = *assigneeName
		}
		if assignedAt != nil {
			issue.AssignedStaff.AssignedAt = *assignedAt
		}
	}
	return &issue, nil
}
