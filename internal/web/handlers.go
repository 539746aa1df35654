package web

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/seoplat/rankview/internal/awr"
	"github.com/seoplat/rankview/internal/health"
	"github.com/seoplat/rankview/internal/metrics"
)

const debugPreviewLimit = 500

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	client   ProviderClient
	prober   DiagProber
	checker  *health.Checker
	renderer *renderer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	client ProviderClient,
	prober DiagProber,
	checker *health.Checker,
	renderer *renderer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		client:   client,
		prober:   prober,
		checker:  checker,
		renderer: renderer,
		metrics:  m,
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
}

// projectsListView is the template context for the projects table.
type projectsListView struct {
	Title          string
	Projects       []awr.Project
	Error          string
	SuccessMessage string
	InfoMessage    string
	DebugInfo      string
}

// projectDetailView is the template context for one project's detail page.
type projectDetailView struct {
	Title          string
	ProjectID      string
	ProjectName    string
	Error          string
	SuccessMessage string
	InfoMessage    string
	Websites       []any
	Keywords       []any
	SearchEngines  []any
	Locations      []any
}

// ProjectsList handles GET /projects.
func (h *Handlers) ProjectsList(c *fiber.Ctx) error {
	env := h.client.ListProjects(c.Context())

	if wantsJSON(c) {
		h.recordPage("projects_list", "json")
		return c.JSON(env)
	}
	h.recordPage("projects_list", "html")

	view := projectsListView{
		Title:    "Projects",
		Projects: env.Projects,
	}

	switch {
	case !env.OK:
		view.Error = env.Error
	case env.Warning != "":
		view.Error = "Unexpected API response format. See debug information for details."
		view.DebugInfo = debugPreview(env.Raw)
	case len(env.Projects) > 0:
		view.SuccessMessage = fmt.Sprintf("Successfully retrieved %d projects.", len(env.Projects))
	default:
		view.InfoMessage = "No projects found in your account. The API connection was successful, but there are no projects to display."
	}

	return h.renderer.render(c, "projects_list", view)
}

// ProjectDetail handles GET /projects/:id.
func (h *Handlers) ProjectDetail(c *fiber.Ctx) error {
	projectID := c.Params("id")
	env := h.client.ProjectDetails(c.Context(), projectID)

	if wantsJSON(c) {
		h.recordPage("project_detail", "json")
		return c.JSON(env)
	}
	h.recordPage("project_detail", "html")

	view := projectDetailView{
		Title:     "Project " + projectID,
		ProjectID: projectID,
	}

	if !env.OK {
		view.Error = env.Error
		return h.renderer.render(c, "project_detail", view)
	}

	view.ProjectName, _ = env.Project["name"].(string)
	view.SuccessMessage = "Project details retrieved successfully."

	if details, ok := env.Project["details"].(map[string]any); ok {
		view.Websites = section(details, "websites")
		view.Keywords = section(details, "keywords")
		view.SearchEngines = section(details, "searchengines")
		view.Locations = section(details, "locations")
	}

	return h.renderer.render(c, "project_detail", view)
}

// Diagnostic handles GET /diagnostic.
func (h *Handlers) Diagnostic(c *fiber.Ctx) error {
	report := h.prober.Run(c.Context())
	return c.JSON(report)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
			"checks": h.checker.Cached(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
		"checks": h.checker.Cached(),
	})
}

func (h *Handlers) recordPage(page, format string) {
	if h.metrics != nil {
		h.metrics.RecordPage(page, format)
	}
}

// wantsJSON reports whether the caller asked for the raw envelope instead of
// an HTML page, via either the Accept or Content-Type header.
func wantsJSON(c *fiber.Ctx) bool {
	if strings.Contains(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		return true
	}
	accept := c.Get(fiber.HeaderAccept)
	return strings.Contains(accept, fiber.MIMEApplicationJSON) &&
		!strings.Contains(accept, fiber.MIMETextHTML)
}

// section pulls a named list out of the details payload.
func section(details map[string]any, name string) []any {
	if v, ok := details[name].([]any); ok {
		return v
	}
	return nil
}

// debugPreview renders a parsed body for the debug panel, truncated the same
// way the API preview is.
func debugPreview(raw map[string]any) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	s := string(b)
	if len(s) > debugPreviewLimit {
		return s[:debugPreviewLimit] + "..."
	}
	return s
}
