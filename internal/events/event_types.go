package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated EventType = "issue_created"
	EventIssueUpdated EventType = "issue_updated"
	EventIssueDeleted EventType = "issue_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Project   string    `json:"project"`
	IssueID   string    `json:"issue_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	IssueTitle string `json:"issue_title"`
	CreatedBy  string `json:"created_by"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// IssueUpdatedPayload lists the fields an update wrote.
type IssueUpdatedPayload struct {
	Fields []string `json:"fields"`
	Open   bool     `json:"open"`
}
