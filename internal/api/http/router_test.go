package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/observability"
	"github.com/spec-kit/issue-tracker/internal/repository"
	"github.com/spec-kit/issue-tracker/internal/service"
)

type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(t *testing.T, deps ...handlers.Dependency) *fiber.App {
	t.Helper()
	clock := &tickingClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo: repository.NewMemoryIssueRepository(),
		Logger:    zap.NewNop(),
		Clock:     clock.Now,
	})
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("issue-tracker", "test", metrics, deps...),
		Issues: handlers.NewIssuesHandler(issueService),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(t, app, req)
}

func doForm(t *testing.T, app *fiber.App, method, target, form string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *nethttp.Request) (int, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func createIssue(t *testing.T, app *fiber.App, project string, body map[string]any) dto.IssueResponse {
	t.Helper()
	status, raw := doJSON(t, app, fiber.MethodPost, "/api/issues/"+project, body)
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	var issue dto.IssueResponse
	require.NoError(t, json.Unmarshal(raw, &issue))
	return issue
}

func decodeError(t *testing.T, raw []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return env
}

func TestCreateIssue_AppliesDefaults(t *testing.T) {
	app := newTestApp(t)

	issue := createIssue(t, app, "apitest", map[string]any{
		"issue_title": "Fix error in posting data",
		"issue_text":  "When we post data it has an error.",
		"created_by":  "Joe",
	})

	assert.True(t, domain.IsValidID(issue.ID))
	assert.Equal(t, "Fix error in posting data", issue.IssueTitle)
	assert.Equal(t, "", issue.AssignedTo)
	assert.Equal(t, "", issue.StatusText)
	assert.True(t, issue.Open)
	assert.Equal(t, issue.CreatedOn, issue.UpdatedOn)
}

func TestCreateIssue_AllFields(t *testing.T) {
	app := newTestApp(t)

	issue := createIssue(t, app, "apitest", map[string]any{
		"issue_title": "Title",
		"issue_text":  "Text",
		"created_by":  "Joe",
		"assigned_to": "Ann",
		"status_text": "In QA",
		"open":        false,
	})

	assert.Equal(t, "Ann", issue.AssignedTo)
	assert.Equal(t, "In QA", issue.StatusText)
	assert.True(t, issue.Open)
}

func TestCreateIssue_MissingRequired(t *testing.T) {
	app := newTestApp(t)

	status, raw := doJSON(t, app, fiber.MethodPost, "/api/issues/apitest", map[string]any{
		"issue_title": "Title",
	})

	assert.Equal(t, fiber.StatusBadRequest, status)
	env := decodeError(t, raw)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, service.MsgRequiredMissing, env.Error.Message)
	assert.Equal(t, []any{"issue_text", "created_by"}, env.Error.Details["fields"])
}

func TestCreateIssue_InvalidJSON(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/api/issues/apitest", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	status, raw := send(t, app, req)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, raw).Error.Code)
}

func TestCreateIssue_FormEncoded(t *testing.T) {
	app := newTestApp(t)

	status, raw := doForm(t, app, fiber.MethodPost, "/api/issues/apitest",
		"issue_title=Form+title&issue_text=Body&created_by=Joe&assigned_to=Ann")

	require.Equal(t, fiber.StatusCreated, status, string(raw))
	var issue dto.IssueResponse
	require.NoError(t, json.Unmarshal(raw, &issue))
	assert.Equal(t, "Form title", issue.IssueTitle)
	assert.Equal(t, "Ann", issue.AssignedTo)
}

func TestListIssues_FiltersAndOrders(t *testing.T) {
	app := newTestApp(t)

	first := createIssue(t, app, "apitest", map[string]any{
		"issue_title": "one", "issue_text": "t", "created_by": "Joe",
	})
	second := createIssue(t, app, "apitest", map[string]any{
		"issue_title": "two", "issue_text": "t", "created_by": "Ann",
	})
	createIssue(t, app, "other", map[string]any{
		"issue_title": "elsewhere", "issue_text": "t", "created_by": "Joe",
	})

	status, raw := doJSON(t, app, fiber.MethodGet, "/api/issues/apitest", nil)
	require.Equal(t, fiber.StatusOK, status)
	var all []dto.IssueResponse
	require.NoError(t, json.Unmarshal(raw, &all))
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	status, raw = doJSON(t, app, fiber.MethodGet, "/api/issues/apitest?created_by=Joe&open=true", nil)
	require.Equal(t, fiber.StatusOK, status)
	var filtered []dto.IssueResponse
	require.NoError(t, json.Unmarshal(raw, &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, first.ID, filtered[0].ID)
}

func TestListIssues_EmptyProjectReturnsEmptyArray(t *testing.T) {
	app := newTestApp(t)

	status, raw := doJSON(t, app, fiber.MethodGet, "/api/issues/nothing-here", nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestListIssues_InvalidIDFilter(t *testing.T) {
	app := newTestApp(t)

	status, raw := doJSON(t, app, fiber.MethodGet, "/api/issues/apitest?_id=nope", nil)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, service.MsgInvalidID, decodeError(t, raw).Error.Message)
}

func TestListIssues_UnknownFieldMatchesNothing(t *testing.T) {
	app := newTestApp(t)
	createIssue(t, app, "p", map[string]any{
		"issue_title": "one", "issue_text": "t", "created_by": "Joe",
	})

	status, raw := doJSON(t, app, fiber.MethodGet, "/api/issues/p?priority=high", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))

	status, raw = doJSON(t, app, fiber.MethodGet, "/api/issues/p?priority=", nil)
	assert.Equal(t, fiber.StatusOK, status)
	var all []dto.IssueResponse
	require.NoError(t, json.Unmarshal(raw, &all))
	assert.Len(t, all, 1)
}

func TestListIssues_SeveralBadValuesReportTheSameError(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 20; i++ {
		status, raw := doJSON(t, app, fiber.MethodGet, "/api/issues/p?_id=bad&open=maybe&created_on=x", nil)
		require.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, service.MsgInvalidID, decodeError(t, raw).Error.Message)
	}
}

func TestUpdateIssue(t *testing.T) {
	app := newTestApp(t)
	issue := createIssue(t, app, "apitest", map[string]any{
		"issue_title": "one", "issue_text": "t", "created_by": "Joe",
	})

	t.Run("success", func(t *testing.T) {
		status, raw := doJSON(t, app, fiber.MethodPut, "/api/issues/apitest", map[string]any{
			"_id": issue.ID, "issue_text": "updated", "open": false,
		})
		require.Equal(t, fiber.StatusOK, status, string(raw))
		assert.JSONEq(t, `{"result":"successfully updated","_id":"`+issue.ID+`"}`, string(raw))

		_, raw = doJSON(t, app, fiber.MethodGet, "/api/issues/apitest?_id="+issue.ID, nil)
		var list []dto.IssueResponse
		require.NoError(t, json.Unmarshal(raw, &list))
		require.Len(t, list, 1)
		assert.Equal(t, "updated", list[0].IssueText)
		assert.False(t, list[0].Open)
		assert.Greater(t, list[0].UpdatedOn, list[0].CreatedOn)
	})

	t.Run("form encoded", func(t *testing.T) {
		status, raw := doForm(t, app, fiber.MethodPut, "/api/issues/apitest",
			"_id="+issue.ID+"&status_text=Done")
		require.Equal(t, fiber.StatusOK, status, string(raw))
	})

	t.Run("missing id", func(t *testing.T) {
		status, raw := doJSON(t, app, fiber.MethodPut, "/api/issues/apitest", map[string]any{
			"issue_text": "updated",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, service.MsgMissingID, decodeError(t, raw).Error.Message)
	})

	t.Run("invalid id", func(t *testing.T) {
		status, raw := doJSON(t, app, fiber.MethodPut, "/api/issues/apitest", map[string]any{
			"_id": issue.ID[:23], "issue_text": "updated",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, service.MsgInvalidID, decodeError(t, raw).Error.Message)
	})

	t.Run("no fields", func(t *testing.T) {
		status, raw := doJSON(t, app, fiber.MethodPut, "/api/issues/apitest", map[string]any{
			"_id": issue.ID, "issue_text": "",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		env := decodeError(t, raw)
		assert.Equal(t, service.MsgNoUpdateFields, env.Error.Message)
		assert.Equal(t, issue.ID, env.Error.Details["_id"])
	})

	t.Run("unknown id", func(t *testing.T) {
		missing := domain.NewID()
		status, raw := doJSON(t, app, fiber.MethodPut, "/api/issues/apitest", map[string]any{
			"_id": missing, "issue_text": "updated",
		})
		assert.Equal(t, fiber.StatusNotFound, status)
		env := decodeError(t, raw)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
		assert.Equal(t, service.MsgCouldNotUpdate, env.Error.Message)
		assert.Equal(t, missing, env.Error.Details["_id"])
	})

	t.Run("other project", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodPut, "/api/issues/elsewhere", map[string]any{
			"_id": issue.ID, "issue_text": "updated",
		})
		assert.Equal(t, fiber.StatusNotFound, status)
	})
}

func TestDeleteIssue(t *testing.T) {
	app := newTestApp(t)
	issue := createIssue(t, app, "apitest", map[string]any{
		"issue_title": "one", "issue_text": "t", "created_by": "Joe",
	})

	status, raw := doJSON(t, app, fiber.MethodDelete, "/api/issues/apitest", map[string]any{"_id": issue.ID})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.JSONEq(t, `{"result":"successfully deleted","_id":"`+issue.ID+`"}`, string(raw))

	status, raw = doJSON(t, app, fiber.MethodDelete, "/api/issues/apitest", map[string]any{"_id": issue.ID})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, service.MsgCouldNotDelete, decodeError(t, raw).Error.Message)

	status, raw = doJSON(t, app, fiber.MethodDelete, "/api/issues/apitest", map[string]any{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, service.MsgMissingID, decodeError(t, raw).Error.Message)

	status, raw = doForm(t, app, fiber.MethodDelete, "/api/issues/apitest", "_id=123")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, service.MsgInvalidID, decodeError(t, raw).Error.Message)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	app := newTestApp(t)

	status, raw := doJSON(t, app, fiber.MethodGet, "/api/nowhere", nil)

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decodeError(t, raw).Error.Code)
}

func TestHealthEndpoints(t *testing.T) {
	healthy := handlers.Dependency{Name: "store", Pinger: pingerFunc(func(context.Context) error { return nil })}
	broken := handlers.Dependency{Name: "redis", Pinger: pingerFunc(func(context.Context) error { return errors.New("connection refused") })}

	app := newTestApp(t, healthy)
	status, raw := doJSON(t, app, fiber.MethodGet, "/health/live", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), `"alive"`)

	status, raw = doJSON(t, app, fiber.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"status":"ready","dependencies":{"store":"ok"}}`, string(raw))

	status, raw = doJSON(t, app, fiber.MethodGet, "/health/metrics", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), "/health/ready|GET|200")

	app = newTestApp(t, healthy, broken)
	status, raw = doJSON(t, app, fiber.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	env := decodeError(t, raw)
	assert.Equal(t, "connection refused", env.Error.Details["redis"])
	assert.Equal(t, "ok", env.Error.Details["store"])
}
