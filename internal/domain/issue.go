package domain

import "time"

// Issue field names as they appear on the wire and in storage.
const (
	FieldID         = "_id"
	FieldIssueTitle = "issue_title"
	FieldIssueText  = "issue_text"
	FieldCreatedBy  = "created_by"
	FieldAssignedTo = "assigned_to"
	FieldStatusText = "status_text"
	FieldOpen       = "open"
	FieldCreatedOn  = "created_on"
	FieldUpdatedOn  = "updated_on"
)

// MutableFields lists the only fields an update may write.
var MutableFields = []string{
	FieldIssueTitle,
	FieldIssueText,
	FieldCreatedBy,
	FieldAssignedTo,
	FieldStatusText,
	FieldOpen,
}

// Issue is a single trackable record inside a project.
type Issue struct {
	ID         string    `json:"_id"`
	IssueTitle string    `json:"issue_title"`
	IssueText  string    `json:"issue_text"`
	CreatedBy  string    `json:"created_by"`
	AssignedTo string    `json:"assigned_to"`
	StatusText string    `json:"status_text"`
	Open       bool      `json:"open"`
	CreatedOn  time.Time `json:"created_on"`
	UpdatedOn  time.Time `json:"updated_on"`
}

// NewIssue builds an open issue stamped with now. Optional text fields default to "".
func NewIssue(title, text, createdBy, assignedTo, statusText string, now time.Time) *Issue {
	return &Issue{
		IssueTitle: title,
		IssueText:  text,
		CreatedBy:  createdBy,
		AssignedTo: assignedTo,
		StatusText: statusText,
		Open:       true,
		CreatedOn:  now,
		UpdatedOn:  now,
	}
}

// IssueChanges is a normalized update set. Nil fields are left untouched;
// UpdatedOn is always written.
type IssueChanges struct {
	IssueTitle *string
	IssueText  *string
	CreatedBy  *string
	AssignedTo *string
	StatusText *string
	Open       *bool
	UpdatedOn  time.Time
}

// Empty reports whether no mutable field is set.
func (c IssueChanges) Empty() bool {
	return c.IssueTitle == nil && c.IssueText == nil && c.CreatedBy == nil &&
		c.AssignedTo == nil && c.StatusText == nil && c.Open == nil
}

// Fields returns the set fields keyed by wire name, updated_on included.
func (c IssueChanges) Fields() map[string]any {
	out := map[string]any{FieldUpdatedOn: c.UpdatedOn}
	if c.IssueTitle != nil {
		out[FieldIssueTitle] = *c.IssueTitle
	}
	if c.IssueText != nil {
		out[FieldIssueText] = *c.IssueText
	}
	if c.CreatedBy != nil {
		out[FieldCreatedBy] = *c.CreatedBy
	}
	if c.AssignedTo != nil {
		out[FieldAssignedTo] = *c.AssignedTo
	}
	if c.StatusText != nil {
		out[FieldStatusText] = *c.StatusText
	}
	if c.Open != nil {
		out[FieldOpen] = *c.Open
	}
	return out
}

// Apply writes the change set onto issue in place.
func (c IssueChanges) Apply(issue *Issue) {
	if c.IssueTitle != nil {
		issue.IssueTitle = *c.IssueTitle
	}
	if c.IssueText != nil {
		issue.IssueText = *c.IssueText
	}
	if c.CreatedBy != nil {
		issue.CreatedBy = *c.CreatedBy
	}
	if c.AssignedTo != nil {
		issue.AssignedTo = *c.AssignedTo
	}
	if c.StatusText != nil {
		issue.StatusText = *c.StatusText
	}
	if c.Open != nil {
		issue.Open = *c.Open
	}
	issue.UpdatedOn = NextUpdatedOn(issue.UpdatedOn, c.UpdatedOn)
}

// UpdateResolution is the precision storage keeps timestamps at.
const UpdateResolution = time.Millisecond

// NextUpdatedOn returns now, or prev plus one resolution step when the clock
// has not moved past prev, so updated_on strictly increases.
func NextUpdatedOn(prev, now time.Time) time.Time {
	floor := prev.Add(UpdateResolution)
	if now.Before(floor) {
		return floor
	}
	return now
}

// IssueFilter captures equality conditions for listing issues. Nil fields do not filter.
// MatchNone is set when the query named a field issues do not have.
type IssueFilter struct {
	MatchNone  bool
	ID         *string
	IssueTitle *string
	IssueText  *string
	CreatedBy  *string
	AssignedTo *string
	StatusText *string
	Open       *bool
	CreatedOn  *time.Time
	UpdatedOn  *time.Time
}

// Matches reports whether issue satisfies every condition in the filter.
func (f IssueFilter) Matches(issue *Issue) bool {
	switch {
	case f.MatchNone:
		return false
	case f.ID != nil && *f.ID != issue.ID:
		return false
	case f.IssueTitle != nil && *f.IssueTitle != issue.IssueTitle:
		return false
	case f.IssueText != nil && *f.IssueText != issue.IssueText:
		return false
	case f.CreatedBy != nil && *f.CreatedBy != issue.CreatedBy:
		return false
	case f.AssignedTo != nil && *f.AssignedTo != issue.AssignedTo:
		return false
	case f.StatusText != nil && *f.StatusText != issue.StatusText:
		return false
	case f.Open != nil && *f.Open != issue.Open:
		return false
	case f.CreatedOn != nil && !f.CreatedOn.Equal(issue.CreatedOn):
		return false
	case f.UpdatedOn != nil && !f.UpdatedOn.Equal(issue.UpdatedOn):
		return false
	}
	return true
}
