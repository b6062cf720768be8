// Package handlers provides HTTP request handlers
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/filter"
	"nasa-explorer/internal/query"
	"nasa-explorer/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler holds all service dependencies
type Handler struct {
	Explorer     *services.ExplorerService
	HistoryLimit int
	now          func() time.Time
}

// NewHandler creates a new handler with services
func NewHandler(explorer *services.ExplorerService, historyLimit int) *Handler {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Handler{
		Explorer:     explorer,
		HistoryLimit: historyLimit,
		now:          time.Now,
	}
}

// LoadResponse is the view returned for every resource
type LoadResponse struct {
	Resource domain.Resource `json:"resource"`
	Count    int             `json:"count"`
	domain.ViewState
}

// Health handles health check requests
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Health{
		Status: "ok",
		Now:    time.Now().UTC(),
	})
}

// GetApod handles astronomy picture requests
func (h *Handler) GetApod(c *gin.Context) {
	h.load(c, domain.ResourceApod)
}

// GetMarsPhotos handles rover photo requests
func (h *Handler) GetMarsPhotos(c *gin.Context) {
	h.load(c, domain.ResourceMarsPhotos)
}

// GetNeoFeed handles near-Earth object feed requests
func (h *Handler) GetNeoFeed(c *gin.Context) {
	h.load(c, domain.ResourceNeoFeed)
}

// Search handles image library search requests
func (h *Handler) Search(c *gin.Context) {
	h.load(c, domain.ResourceImageSearch)
}

// GetMarsCameras lists the camera whitelist for a rover
func (h *Handler) GetMarsCameras(c *gin.Context) {
	rover := c.DefaultQuery("rover", query.DefaultRover)
	cams, ok := query.Cameras(rover)
	if !ok {
		c.JSON(http.StatusBadRequest, domain.FailureResponse(domain.Validation("rover", "Unknown rover "+rover+".")))
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(map[string]interface{}{
		"rover":   rover,
		"cameras": cams,
	}))
}

// GetView re-filters the last loaded records of a resource without fetching
func (h *Handler) GetView(c *gin.Context) {
	resource, ok := domain.ParseResource(c.Param("resource"))
	if !ok {
		c.JSON(http.StatusNotFound, domain.ErrorResponse("NOT_FOUND", "unknown resource "+c.Param("resource")))
		return
	}
	f, sort, fail := bindFilters(c)
	if fail != nil {
		c.JSON(http.StatusBadRequest, domain.FailureResponse(fail))
		return
	}

	view, err := h.Explorer.View(resource, f, sort)
	if err != nil {
		c.JSON(http.StatusOK, domain.ErrorResponse("INTERNAL", err.Error()))
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(newLoadResponse(resource, view)))
}

// GetHistory lists recent load actions
func (h *Handler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.HistoryLimit)))
	if limit <= 0 {
		limit = h.HistoryLimit
	}

	entries, err := h.Explorer.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusOK, domain.ErrorResponse("INTERNAL", err.Error()))
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(map[string]interface{}{
		"items": entries,
	}))
}

// GetLatestLoad returns the last recorded load action for a resource
func (h *Handler) GetLatestLoad(c *gin.Context) {
	resource, ok := domain.ParseResource(c.Param("resource"))
	if !ok {
		c.JSON(http.StatusNotFound, domain.ErrorResponse("NOT_FOUND", "unknown resource "+c.Param("resource")))
		return
	}

	entry, err := h.Explorer.LatestLoad(c.Request.Context(), resource)
	if err != nil {
		c.JSON(http.StatusOK, domain.ErrorResponse("INTERNAL", err.Error()))
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, domain.SuccessResponse(map[string]interface{}{
			"resource": resource,
			"message":  "no data",
		}))
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(entry))
}

// GetSummary handles combined APOD and NEO requests
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.Explorer.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, domain.ErrorResponse("INTERNAL", err.Error()))
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(map[string]interface{}{
		"apod": newLoadResponse(domain.ResourceApod, summary.Apod),
		"neo":  newLoadResponse(domain.ResourceNeoFeed, summary.Neo),
	}))
}

func (h *Handler) load(c *gin.Context, resource domain.Resource) {
	var controls query.Controls
	if err := c.ShouldBindQuery(&controls); err != nil {
		c.JSON(http.StatusBadRequest, domain.FailureResponse(domain.Validation("", err.Error())))
		return
	}
	f, sort, fail := bindFilters(c)
	if fail != nil {
		c.JSON(http.StatusBadRequest, domain.FailureResponse(fail))
		return
	}
	if resource == domain.ResourceNeoFeed && controls.StartDate == "" && controls.EndDate == "" {
		controls.StartDate, controls.EndDate = query.DefaultNeoRange(h.now())
	}

	view, err := h.Explorer.Load(c.Request.Context(), resource, services.LoadRequest{
		Controls: controls,
		Filters:  f,
		Sort:     sort,
	})
	resp := newLoadResponse(resource, view)
	if err == nil {
		c.JSON(http.StatusOK, domain.SuccessResponse(resp))
		return
	}

	failure, ok := domain.AsFailure(err)
	if !ok {
		c.JSON(http.StatusOK, domain.ErrorResponse("INTERNAL", err.Error()))
		return
	}
	status := http.StatusBadGateway
	if failure.Kind == domain.KindValidation {
		status = http.StatusBadRequest
	}
	body := domain.FailureResponse(failure)
	body.Data = resp
	c.JSON(status, body)
}

func bindFilters(c *gin.Context) (filter.Filters, filter.SortKey, *domain.Failure) {
	var f filter.Filters
	if err := c.ShouldBindQuery(&f); err != nil {
		return f, "", domain.Validation("", err.Error())
	}
	if err := f.Validate(); err != nil {
		fail, _ := domain.AsFailure(err)
		return f, "", fail
	}

	raw := c.Query("sort")
	if raw == "" {
		return f, "", nil
	}
	sort, ok := filter.ParseSortKey(raw)
	if !ok {
		return f, "", domain.Validation("sort", "sort must be one of: closest, date, none.")
	}
	return f, sort, nil
}

func newLoadResponse(resource domain.Resource, view domain.ViewState) LoadResponse {
	return LoadResponse{Resource: resource, Count: len(view.LastRecords), ViewState: view}
}

// SetupRoutes configures all routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	// Health check
	r.GET("/health", h.Health)

	// Resource loads
	r.GET("/apod", h.GetApod)
	r.GET("/mars/photos", h.GetMarsPhotos)
	r.GET("/mars/cameras", h.GetMarsCameras)
	r.GET("/neo/feed", h.GetNeoFeed)
	r.GET("/search", h.Search)

	// Views over the last load
	r.GET("/view/:resource", h.GetView)
	r.GET("/summary", h.GetSummary)

	// Load history
	r.GET("/history", h.GetHistory)
	r.GET("/history/:resource/latest", h.GetLatestLoad)
}
