package contacts

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/contacts"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Handler serves the contact and resolution endpoints
type Handler struct {
	service *contacts.Service
	logger  ectologger.Logger
}

// NewHandler creates a new contact handler
func NewHandler(service *contacts.Service, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the contact and resolution routes on g
func (h *Handler) RegisterRoutes(g *echo.Group) {
	c := g.Group("/contacts")
	c.GET("", h.List)
	c.POST("/matches", h.FindMatches)
	c.GET("/:id", h.Get)
	c.GET("/:id/export", h.Export)
	c.DELETE("/:id", h.Delete)

	r := g.Group("/resolutions")
	r.POST("", h.BeginResolution)
	r.GET("/:id", h.GetResolution)
	r.POST("/:id/decision", h.Decide)
}

// List returns the stored contacts, newest first
func (h *Handler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ContactHandler.List")
	defer span.End()

	items, err := h.service.List(ctx, c.QueryParam("search"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ContactListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// Get returns a contact by id
func (h *Handler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ContactHandler.Get")
	defer span.End()

	contact, err := h.service.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, contact)
}

// Export returns a contact in the native address book shape
func (h *Handler) Export(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ContactHandler.Export")
	defer span.End()

	device, err := h.service.Export(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, device)
}

// Delete removes a contact
func (h *Handler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ContactHandler.Delete")
	defer span.End()

	if err := h.service.Delete(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// FindMatches ranks the stored contacts against the posted candidate
// without saving anything
func (h *Handler) FindMatches(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ContactHandler.FindMatches")
	defer span.End()

	req, err := utils.BindRequest[models.CreateContactRequest](c)
	if err != nil {
		return err
	}

	matches, err := h.service.FindMatches(ctx, req.ToContact(h.service.Now()))
	if err != nil {
		return err
	}

	resp := models.MatchListResponse{Matches: matches}
	if len(matches) > 0 {
		best := matches[0]
		resp.BestMatch = &best
	}
	return c.JSON(http.StatusOK, resp)
}

// BeginResolution resolves a candidate. Without a decision the response
// either carries the saved contact or the matches waiting for a decision.
func (h *Handler) BeginResolution(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ContactHandler.BeginResolution")
	defer span.End()

	req, err := utils.BindRequest[models.BeginResolutionRequest](c)
	if err != nil {
		return err
	}

	resp, err := h.service.Resolve(ctx, req.Contact.ToContact(h.service.Now()), req.Decision)
	if err != nil {
		return withResolutionID(err, resp.ID)
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"resolution_id": resp.ID,
		"state":         resp.State,
		"matches":       len(resp.Matches),
	}).Debug("Began resolution")

	return c.JSON(http.StatusOK, resp)
}

// GetResolution describes a resolution waiting for a decision
func (h *Handler) GetResolution(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ContactHandler.GetResolution")
	defer span.End()

	resp, err := h.service.Resolution(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Decide applies a decision to a waiting resolution
func (h *Handler) Decide(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ContactHandler.Decide")
	defer span.End()

	decision, err := utils.BindRequest[models.Decision](c)
	if err != nil {
		return err
	}

	resp, err := h.service.Decide(ctx, c.Param("id"), decision)
	if err != nil {
		return withResolutionID(err, resp.ID)
	}

	return c.JSON(http.StatusOK, resp)
}

// withResolutionID tells the caller which resolution is still open after a
// failed step
func withResolutionID(err error, id string) error {
	if id == "" {
		return err
	}

	var contactErr *ferrors.ContactError
	if !errors.As(err, &contactErr) {
		return err
	}

	return contactErr.ToHTTPError().AddMetaValue("resolution_id", id)
}
