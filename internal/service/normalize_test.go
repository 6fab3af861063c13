package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/issue-tracker/internal/domain"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestNormalizeFilter_DropsEmptyValues(t *testing.T) {
	filter, err := NormalizeFilter(map[string]string{
		"created_by":  "alice",
		"assigned_to": "",
		"status_text": "",
		"bogus":       "",
	})
	require.NoError(t, err)

	require.NotNil(t, filter.CreatedBy)
	assert.Equal(t, "alice", *filter.CreatedBy)
	assert.Nil(t, filter.AssignedTo)
	assert.Nil(t, filter.StatusText)
	assert.Nil(t, filter.Open)
	assert.False(t, filter.MatchNone)
}

func TestNormalizeFilter_UnknownFieldMatchesNothing(t *testing.T) {
	filter, err := NormalizeFilter(map[string]string{
		"created_by": "alice",
		"priority":   "high",
	})
	require.NoError(t, err)

	assert.True(t, filter.MatchNone)
	issue := domain.NewIssue("t", "x", "alice", "", "", fixedNow)
	assert.False(t, filter.Matches(issue))
}

func TestNormalizeFilter_ReportsFirstBadKeyInFieldOrder(t *testing.T) {
	query := map[string]string{
		"_id":        "bad",
		"open":       "maybe",
		"created_on": "x",
	}
	for i := 0; i < 50; i++ {
		_, err := NormalizeFilter(query)
		require.Error(t, err)
		assert.Equal(t, MsgInvalidID, apperrors.ToDomainError(err).Message)
	}

	delete(query, "_id")
	_, err := NormalizeFilter(query)
	assert.Equal(t, "invalid open: expected true or false", apperrors.ToDomainError(err).Message)
}

func TestNormalizeFilter_Open(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"true", true},
		{"false", false},
	}
	for _, tt := range tests {
		filter, err := NormalizeFilter(map[string]string{"open": tt.value})
		require.NoError(t, err, tt.value)
		require.NotNil(t, filter.Open)
		assert.Equal(t, tt.want, *filter.Open, tt.value)
	}

	_, err := NormalizeFilter(map[string]string{"open": "yes"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestNormalizeFilter_ID(t *testing.T) {
	id := domain.NewID()
	filter, err := NormalizeFilter(map[string]string{"_id": id})
	require.NoError(t, err)
	require.NotNil(t, filter.ID)
	assert.Equal(t, id, *filter.ID)

	_, err = NormalizeFilter(map[string]string{"_id": "1234"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestNormalizeFilter_Timestamps(t *testing.T) {
	filter, err := NormalizeFilter(map[string]string{"created_on": "2024-03-01T10:00:00Z"})
	require.NoError(t, err)
	require.NotNil(t, filter.CreatedOn)
	assert.True(t, fixedNow.Equal(*filter.CreatedOn))

	_, err = NormalizeFilter(map[string]string{"updated_on": "yesterday"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestExtractID(t *testing.T) {
	id := domain.NewID()

	got, err := ExtractID(map[string]any{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ExtractID(map[string]any{})
	require.Error(t, err)
	assert.Equal(t, MsgMissingID, apperrors.ToDomainError(err).Message)

	_, err = ExtractID(map[string]any{"_id": ""})
	assert.Equal(t, MsgMissingID, apperrors.ToDomainError(err).Message)

	for _, bad := range []any{"not-an-id", "5F8D0D55B54764421B7156C9", 42.0, true} {
		_, err = ExtractID(map[string]any{"_id": bad})
		require.Error(t, err, bad)
		assert.Equal(t, MsgInvalidID, apperrors.ToDomainError(err).Message, bad)
	}
}

func TestNormalizeChanges_StripsIDAndEmptyValues(t *testing.T) {
	changes, err := NormalizeChanges(map[string]any{
		"_id":         domain.NewID(),
		"status_text": "in progress",
		"assigned_to": "",
		"issue_title": nil,
		"created_on":  "2000-01-01T00:00:00Z",
		"hacker":      "field",
	}, fixedNow)
	require.NoError(t, err)

	require.NotNil(t, changes.StatusText)
	assert.Equal(t, "in progress", *changes.StatusText)
	assert.Nil(t, changes.AssignedTo)
	assert.Nil(t, changes.IssueTitle)
	assert.Equal(t, fixedNow, changes.UpdatedOn)
	assert.Equal(t, map[string]any{
		"status_text": "in progress",
		"updated_on":  fixedNow,
	}, changes.Fields())
}

func TestNormalizeChanges_NothingToUpdate(t *testing.T) {
	for _, body := range []map[string]any{
		{"_id": domain.NewID()},
		{"_id": domain.NewID(), "issue_text": "", "open": ""},
		{"_id": domain.NewID(), "unknown": "value"},
	} {
		_, err := NormalizeChanges(body, fixedNow)
		require.Error(t, err)
		de := apperrors.ToDomainError(err)
		assert.Equal(t, apperrors.CodeValidationFailed, de.Code)
		assert.Equal(t, MsgNoUpdateFields, de.Message)
	}
}

func TestNormalizeChanges_OpenFalseIsHonored(t *testing.T) {
	for _, raw := range []any{false, "false"} {
		changes, err := NormalizeChanges(map[string]any{"open": raw}, fixedNow)
		require.NoError(t, err)
		require.NotNil(t, changes.Open)
		assert.False(t, *changes.Open)
	}

	_, err := NormalizeChanges(map[string]any{"open": "closed"}, fixedNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestNormalizeChanges_TextTypes(t *testing.T) {
	changes, err := NormalizeChanges(map[string]any{"status_text": 0.0}, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, changes.StatusText)
	assert.Equal(t, "0", *changes.StatusText)

	_, err = NormalizeChanges(map[string]any{"issue_title": map[string]any{"$set": "x"}}, fixedNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestNormalizeNewIssue_Defaults(t *testing.T) {
	issue, err := NormalizeNewIssue(map[string]any{
		"issue_title": "a",
		"issue_text":  "b",
		"created_by":  "c",
		"open":        false,
	}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "a", issue.IssueTitle)
	assert.True(t, issue.Open)
	assert.Equal(t, "", issue.AssignedTo)
	assert.Equal(t, "", issue.StatusText)
	assert.Equal(t, fixedNow, issue.CreatedOn)
	assert.Equal(t, issue.CreatedOn, issue.UpdatedOn)
}

func TestNormalizeNewIssue_MissingRequired(t *testing.T) {
	_, err := NormalizeNewIssue(map[string]any{
		"issue_title": "a",
		"issue_text":  "",
	}, fixedNow)
	require.Error(t, err)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, MsgRequiredMissing, de.Message)
	assert.Equal(t, []string{"issue_text", "created_by"}, de.Details["fields"])
}
