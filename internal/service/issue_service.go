package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// IssueService coordinates issue workflows.
type IssueService struct {
	issues     repository.IssueRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &IssueService{
		issues:     deps.IssueRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		clock:      clock,
	}
}

// ListIssues returns the project's issues matching query, most recently updated first.
func (s *IssueService) ListIssues(ctx context.Context, project string, query map[string]string) ([]domain.Issue, error) {
	if err := checkProject(project); err != nil {
		return nil, err
	}
	filter, err := NormalizeFilter(query)
	if err != nil {
		return nil, err
	}
	if filter.MatchNone {
		return []domain.Issue{}, nil
	}
	issues, err := s.issues.List(ctx, project, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return issues, nil
}

// CreateIssue validates fields and persists a new open issue in project.
func (s *IssueService) CreateIssue(ctx context.Context, project string, fields map[string]any) (*domain.Issue, error) {
	if err := checkProject(project); err != nil {
		return nil, err
	}
	issue, err := NormalizeNewIssue(fields, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.issues.Create(ctx, project, issue); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueCreated,
		Project: project,
		IssueID: issue.ID,
		Payload: events.IssueCreatedPayload{
			IssueTitle: issue.IssueTitle,
			CreatedBy:  issue.CreatedBy,
			AssignedTo: issue.AssignedTo,
		},
	})
	return issue, nil
}

// UpdateIssue applies the mutable fields in body to the issue named by its _id.
func (s *IssueService) UpdateIssue(ctx context.Context, project string, fields map[string]any) (*domain.Issue, error) {
	if err := checkProject(project); err != nil {
		return nil, err
	}
	id, err := ExtractID(fields)
	if err != nil {
		return nil, err
	}
	changes, err := NormalizeChanges(fields, s.now())
	if err != nil {
		return nil, withID(err, id)
	}

	issue, err := s.issues.Update(ctx, project, id, changes)
	if err != nil {
		if errors.Is(err, repository.ErrIssueNotFound) {
			return nil, apperrors.NewNotFound(MsgCouldNotUpdate, map[string]any{domain.FieldID: id})
		}
		return nil, apperrors.NewInternalError(err)
	}

	written := make([]string, 0, len(domain.MutableFields))
	setFields := changes.Fields()
	for _, key := range domain.MutableFields {
		if _, ok := setFields[key]; ok {
			written = append(written, key)
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueUpdated,
		Project: project,
		IssueID: id,
		Payload: events.IssueUpdatedPayload{Fields: written, Open: issue.Open},
	})
	return issue, nil
}

// DeleteIssue removes the issue named by the body's _id.
func (s *IssueService) DeleteIssue(ctx context.Context, project string, fields map[string]any) (string, error) {
	if err := checkProject(project); err != nil {
		return "", err
	}
	id, err := ExtractID(fields)
	if err != nil {
		return "", err
	}
	if err := s.issues.Delete(ctx, project, id); err != nil {
		if errors.Is(err, repository.ErrIssueNotFound) {
			return "", apperrors.NewNotFound(MsgCouldNotDelete, map[string]any{domain.FieldID: id})
		}
		return "", apperrors.NewInternalError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventIssueDeleted,
		Project: project,
		IssueID: id,
	})
	return id, nil
}

func (s *IssueService) now() time.Time {
	return s.clock().UTC().Truncate(domain.UpdateResolution)
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("issue_id", event.IssueID),
			zap.Error(err))
	}
}

func checkProject(project string) error {
	if !domain.ValidateProject(project) {
		return apperrors.NewValidationError(MsgInvalidProject, map[string]any{"project": project})
	}
	return nil
}

// withID attaches the request's _id to a validation error's details.
func withID(err error, id string) error {
	de := apperrors.ToDomainError(err)
	details := map[string]any{domain.FieldID: id}
	for k, v := range de.Details {
		details[k] = v
	}
	return apperrors.NewDomainError(de.Code, de.Message, de.HTTPStatus, details)
}
