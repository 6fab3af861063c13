package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/service"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// IssuesHandler serves the per-project issue endpoints.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// List GET /api/issues/:project.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	project, err := projectParam(c)
	if err != nil {
		return err
	}
	query := map[string]string{}
	c.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		// first occurrence wins for repeated keys
		if _, seen := query[string(key)]; !seen {
			query[string(key)] = string(value)
		}
	})
	issues, err := h.service.ListIssues(c.UserContext(), project, query)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewIssueList(issues))
}

// Create POST /api/issues/:project.
func (h *IssuesHandler) Create(c *fiber.Ctx) error {
	project, err := projectParam(c)
	if err != nil {
		return err
	}
	fields, err := requestFields(c)
	if err != nil {
		return err
	}
	issue, err := h.service.CreateIssue(c.UserContext(), project, fields)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewIssueResponse(issue))
}

// Update PUT /api/issues/:project.
func (h *IssuesHandler) Update(c *fiber.Ctx) error {
	project, err := projectParam(c)
	if err != nil {
		return err
	}
	fields, err := requestFields(c)
	if err != nil {
		return err
	}
	issue, err := h.service.UpdateIssue(c.UserContext(), project, fields)
	if err != nil {
		return err
	}
	return c.JSON(dto.MutationResult{Result: dto.ResultUpdated, ID: issue.ID})
}

// Delete DELETE /api/issues/:project.
func (h *IssuesHandler) Delete(c *fiber.Ctx) error {
	project, err := projectParam(c)
	if err != nil {
		return err
	}
	fields, err := requestFields(c)
	if err != nil {
		return err
	}
	id, err := h.service.DeleteIssue(c.UserContext(), project, fields)
	if err != nil {
		return err
	}
	return c.JSON(dto.MutationResult{Result: dto.ResultDeleted, ID: id})
}

func projectParam(c *fiber.Ctx) (string, error) {
	project, err := url.PathUnescape(c.Params("project"))
	if err != nil {
		return "", apperrors.NewValidationError(service.MsgInvalidProject, nil)
	}
	return project, nil
}

// requestFields decodes a JSON object or form body into loosely typed fields.
// An empty body yields no fields.
func requestFields(c *fiber.Ctx) (map[string]any, error) {
	fields := map[string]any{}
	body := c.Body()
	if len(body) == 0 {
		return fields, nil
	}
	if c.Is("json") {
		if err := c.App().Config().JSONDecoder(body, &fields); err != nil {
			return nil, apperrors.NewValidationError("invalid payload", nil)
		}
		if fields == nil {
			fields = map[string]any{}
		}
		return fields, nil
	}
	// fasthttp only pre-parses form args on POST, so decode the body directly
	// to accept PUT and DELETE forms as well.
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	for key, values := range form {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}
