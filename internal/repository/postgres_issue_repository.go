package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

const issueColumns = `id, issue_title, issue_text, created_by, assigned_to, status_text, open, created_on, updated_on`

// pgxQuerier is the part of *pgxpool.Pool the repository relies on.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type postgresIssueRepository struct {
	pool pgxQuerier
}

// NewPostgresIssueRepository instantiates repository over a single issues table keyed by (project, id).
func NewPostgresIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &postgresIssueRepository{pool: pool}
}

func (r *postgresIssueRepository) List(ctx context.Context, project string, filter domain.IssueFilter) ([]domain.Issue, error) {
	if filter.MatchNone {
		return []domain.Issue{}, nil
	}
	query, args := buildIssueListQuery(project, filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

func (r *postgresIssueRepository) Create(ctx context.Context, project string, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (project, id, issue_title, issue_text, created_by, assigned_to, status_text, open, created_on, updated_on)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	id := domain.NewID()
	if _, err := r.pool.Exec(ctx, query,
		project,
		id,
		issue.IssueTitle,
		issue.IssueText,
		issue.CreatedBy,
		issue.AssignedTo,
		issue.StatusText,
		issue.Open,
		issue.CreatedOn,
		issue.UpdatedOn,
	); err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	issue.ID = id
	return nil
}

func (r *postgresIssueRepository) Update(ctx context.Context, project, id string, changes domain.IssueChanges) (*domain.Issue, error) {
	const query = `
        UPDATE issues SET
            issue_title = COALESCE($3, issue_title),
            issue_text  = COALESCE($4, issue_text),
            created_by  = COALESCE($5, created_by),
            assigned_to = COALESCE($6, assigned_to),
            status_text = COALESCE($7, status_text),
            open        = COALESCE($8, open),
            updated_on  = GREATEST($9, updated_on + interval '1 millisecond')
        WHERE project=$1 AND id=$2
        RETURNING ` + issueColumns
	row := r.pool.QueryRow(ctx, query,
		project,
		id,
		changes.IssueTitle,
		changes.IssueText,
		changes.CreatedBy,
		changes.AssignedTo,
		changes.StatusText,
		changes.Open,
		changes.UpdatedOn,
	)
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("update issue: %w", err)
	}
	return issue, nil
}

func (r *postgresIssueRepository) Delete(ctx context.Context, project, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE project=$1 AND id=$2`, project, id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrIssueNotFound
	}
	return nil
}

func (r *postgresIssueRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func buildIssueListQuery(project string, filter domain.IssueFilter) (string, []any) {
	args := []any{project}
	clauses := []string{"project=$1"}

	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if filter.ID != nil {
		add("id", *filter.ID)
	}
	if filter.IssueTitle != nil {
		add("issue_title", *filter.IssueTitle)
	}
	if filter.IssueText != nil {
		add("issue_text", *filter.IssueText)
	}
	if filter.CreatedBy != nil {
		add("created_by", *filter.CreatedBy)
	}
	if filter.AssignedTo != nil {
		add("assigned_to", *filter.AssignedTo)
	}
	if filter.StatusText != nil {
		add("status_text", *filter.StatusText)
	}
	if filter.Open != nil {
		add("open", *filter.Open)
	}
	if filter.CreatedOn != nil {
		add("created_on", *filter.CreatedOn)
	}
	if filter.UpdatedOn != nil {
		add("updated_on", *filter.UpdatedOn)
	}

	query := fmt.Sprintf(`SELECT %s FROM issues WHERE %s ORDER BY updated_on DESC, seq ASC`,
		issueColumns, strings.Join(clauses, " AND "))
	return query, args
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var issue domain.Issue
	if err := row.Scan(
		&issue.ID,
		&issue.IssueTitle,
		&issue.IssueText,
		&issue.CreatedBy,
		&issue.AssignedTo,
		&issue.StatusText,
		&issue.Open,
		&issue.CreatedOn,
		&issue.UpdatedOn,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
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
