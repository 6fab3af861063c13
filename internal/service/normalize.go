package service

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// Messages returned to clients for validation failures.
const (
	MsgMissingID       = "missing _id"
	MsgInvalidID       = "invalid _id"
	MsgNoUpdateFields  = "no update field(s) sent"
	MsgRequiredMissing = "required field(s) missing"
	MsgInvalidProject  = "invalid project name"
	MsgCouldNotUpdate  = "could not update"
	MsgCouldNotDelete  = "could not delete"
)

// filterKeys fixes the order query keys are validated in, so a request with
// several bad values always reports the same one.
var filterKeys = []string{
	domain.FieldID,
	domain.FieldIssueTitle,
	domain.FieldIssueText,
	domain.FieldCreatedBy,
	domain.FieldAssignedTo,
	domain.FieldStatusText,
	domain.FieldOpen,
	domain.FieldCreatedOn,
	domain.FieldUpdatedOn,
}

// NormalizeFilter builds a list filter from query-string parameters. Empty
// values mean "no filter on this field" except for open, where an empty value
// selects open issues. Any other key with a non-empty value is an equality
// condition no stored issue carries, so the filter matches nothing.
func NormalizeFilter(query map[string]string) (domain.IssueFilter, error) {
	var filter domain.IssueFilter
	for _, key := range filterKeys {
		value, ok := query[key]
		if !ok {
			continue
		}
		if key == domain.FieldOpen {
			open, err := parseOpenFilter(value)
			if err != nil {
				return domain.IssueFilter{}, err
			}
			filter.Open = &open
			continue
		}
		if value == "" {
			continue
		}
		switch key {
		case domain.FieldID:
			if !domain.IsValidID(value) {
				return domain.IssueFilter{}, apperrors.NewValidationError(MsgInvalidID, map[string]any{domain.FieldID: value})
			}
			filter.ID = strPtr(value)
		case domain.FieldIssueTitle:
			filter.IssueTitle = strPtr(value)
		case domain.FieldIssueText:
			filter.IssueText = strPtr(value)
		case domain.FieldCreatedBy:
			filter.CreatedBy = strPtr(value)
		case domain.FieldAssignedTo:
			filter.AssignedTo = strPtr(value)
		case domain.FieldStatusText:
			filter.StatusText = strPtr(value)
		case domain.FieldCreatedOn, domain.FieldUpdatedOn:
			ts, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				return domain.IssueFilter{}, apperrors.NewValidationError(fmt.Sprintf("invalid %s: expected RFC3339 timestamp", key), nil)
			}
			if key == domain.FieldCreatedOn {
				filter.CreatedOn = &ts
			} else {
				filter.UpdatedOn = &ts
			}
		}
	}
	for key, value := range query {
		if value != "" && !slices.Contains(filterKeys, key) {
			filter.MatchNone = true
			break
		}
	}
	return filter, nil
}

func parseOpenFilter(value string) (bool, error) {
	switch value {
	case "", "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, apperrors.NewValidationError("invalid open: expected true or false", nil)
}

// ExtractID returns the canonical _id carried by a request body.
func ExtractID(fields map[string]any) (string, error) {
	raw, ok := fields[domain.FieldID]
	if !ok || raw == nil || raw == "" {
		return "", apperrors.NewValidationError(MsgMissingID, nil)
	}
	id, ok := raw.(string)
	if !ok || !domain.IsValidID(id) {
		return "", apperrors.NewValidationError(MsgInvalidID, map[string]any{domain.FieldID: raw})
	}
	return id, nil
}

// NormalizeChanges builds an update set from a request body. The _id key and
// keys outside the mutable allow-list are ignored; empty strings and nulls are
// treated as absent. An empty result is a validation error.
func NormalizeChanges(fields map[string]any, now time.Time) (domain.IssueChanges, error) {
	changes := domain.IssueChanges{UpdatedOn: now}
	targets := map[string]**string{
		domain.FieldIssueTitle: &changes.IssueTitle,
		domain.FieldIssueText:  &changes.IssueText,
		domain.FieldCreatedBy:  &changes.CreatedBy,
		domain.FieldAssignedTo: &changes.AssignedTo,
		domain.FieldStatusText: &changes.StatusText,
	}
	for key, target := range targets {
		value, present, err := textValue(fields, key)
		if err != nil {
			return domain.IssueChanges{}, err
		}
		if present {
			*target = strPtr(value)
		}
	}

	open, present, err := openValue(fields)
	if err != nil {
		return domain.IssueChanges{}, err
	}
	if present {
		changes.Open = &open
	}

	if changes.Empty() {
		return domain.IssueChanges{}, apperrors.NewValidationError(MsgNoUpdateFields, nil)
	}
	return changes, nil
}

// NormalizeNewIssue validates a create request and applies creation defaults.
func NormalizeNewIssue(fields map[string]any, now time.Time) (*domain.Issue, error) {
	values := map[string]string{}
	var missing []string
	for _, key := range []string{domain.FieldIssueTitle, domain.FieldIssueText, domain.FieldCreatedBy} {
		value, present, err := textValue(fields, key)
		if err != nil {
			return nil, err
		}
		if !present {
			missing = append(missing, key)
			continue
		}
		values[key] = value
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError(MsgRequiredMissing, map[string]any{"fields": missing})
	}

	for _, key := range []string{domain.FieldAssignedTo, domain.FieldStatusText} {
		value, _, err := textValue(fields, key)
		if err != nil {
			return nil, err
		}
		values[key] = value
	}

	return domain.NewIssue(
		values[domain.FieldIssueTitle],
		values[domain.FieldIssueText],
		values[domain.FieldCreatedBy],
		values[domain.FieldAssignedTo],
		values[domain.FieldStatusText],
		now,
	), nil
}

// textValue reads a text field. Numbers are accepted and formatted; booleans,
// objects and arrays are rejected.
func textValue(fields map[string]any, key string) (string, bool, error) {
	switch v := fields[key].(type) {
	case nil:
		return "", false, nil
	case string:
		return v, v != "", nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	default:
		return "", false, apperrors.NewValidationError(fmt.Sprintf("invalid %s: expected text", key), nil)
	}
}

func openValue(fields map[string]any) (bool, bool, error) {
	switch v := fields[domain.FieldOpen].(type) {
	case nil:
		return false, false, nil
	case bool:
		return v, true, nil
	case string:
		switch v {
		case "":
			return false, false, nil
		case "true":
			return true, true, nil
		case "false":
			return false, true, nil
		}
	}
	return false, false, apperrors.NewValidationError("invalid open: expected true or false", nil)
}

func strPtr(s string) *string {
	return &s
}
