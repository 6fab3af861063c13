package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// ErrIssueNotFound is returned when no issue matches the project and id.
var ErrIssueNotFound = errors.New("issue not found")

// IssueRepository encapsulates issue persistence scoped by project.
type IssueRepository interface {
	// List returns matching issues ordered by updated_on descending.
	List(ctx context.Context, project string, filter domain.IssueFilter) ([]domain.Issue, error)
	// Create persists issue and assigns its ID.
	Create(ctx context.Context, project string, issue *domain.Issue) error
	// Update atomically applies changes and returns the updated issue.
	Update(ctx context.Context, project, id string, changes domain.IssueChanges) (*domain.Issue, error)
	Delete(ctx context.Context, project, id string) error
	Ping(ctx context.Context) error
}
