package dto

import (
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// TimestampLayout renders instants in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Mutation results reported by update and delete.
const (
	ResultUpdated = "successfully updated"
	ResultDeleted = "successfully deleted"
)

// IssueResponse is the wire form of an issue.
type IssueResponse struct {
	ID         string `json:"_id"`
	IssueTitle string `json:"issue_title"`
	IssueText  string `json:"issue_text"`
	CreatedBy  string `json:"created_by"`
	AssignedTo string `json:"assigned_to"`
	StatusText string `json:"status_text"`
	Open       bool   `json:"open"`
	CreatedOn  string `json:"created_on"`
	UpdatedOn  string `json:"updated_on"`
}

// MutationResult acknowledges a successful update or delete.
type MutationResult struct {
	Result string `json:"result"`
	ID     string `json:"_id"`
}

// NewIssueResponse maps a domain issue.
func NewIssueResponse(issue *domain.Issue) IssueResponse {
	return IssueResponse{
		ID:         issue.ID,
		IssueTitle: issue.IssueTitle,
		IssueText:  issue.IssueText,
		CreatedBy:  issue.CreatedBy,
		AssignedTo: issue.AssignedTo,
		StatusText: issue.StatusText,
		Open:       issue.Open,
		CreatedOn:  FormatTimestamp(issue.CreatedOn),
		UpdatedOn:  FormatTimestamp(issue.UpdatedOn),
	}
}

// NewIssueList maps a list of issues, never returning nil.
func NewIssueList(issues []domain.Issue) []IssueResponse {
	items := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		items = append(items, NewIssueResponse(&issues[i]))
	}
	return items
}

// FormatTimestamp renders t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
