package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fixflow/fixflow/internal/application/port"
	"github.com/fixflow/fixflow/internal/application/service"
	"github.com/fixflow/fixflow/internal/domain/request"
)

// actorHeader identifies the caller. Authentication is expected to happen
// upstream; this layer only resolves the already-authenticated identity.
const actorHeader = "X-Actor-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	requestService service.RequestService
	userRepo       port.UserRepository
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(requestService service.RequestService, userRepo port.UserRepository, logger Logger) *Handlers {
	return &Handlers{
		requestService: requestService,
		userRepo:       userRepo,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the stable error code alongside the human message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the payload for POST /api/requests
type CreateRequestBody struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	CategoryID  int64  `json:"category_id"`
	LocationID  int64  `json:"location_id"`
}

// AssignRequestBody is the payload for POST /api/requests/:id/assign
type AssignRequestBody struct {
	TechnicianID string `json:"technician_id" binding:"required"`
}

// ReasonBody is the payload for actions that carry a reason
type ReasonBody struct {
	Reason string `json:"reason"`
}

// NoteBody is the payload for POST /api/requests/:id/complete
type NoteBody struct {
	Note string `json:"note"`
}

// UpdateRequestBody is the payload for PATCH /api/requests/:id
type UpdateRequestBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ListRequestsQuery represents query parameters for listing requests
type ListRequestsQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	detail, err := h.requestService.Create(c.Request.Context(), service.CreateInput{
		RequesterID: actor.ID,
		Title:       body.Title,
		Description: body.Description,
		CategoryID:  body.CategoryID,
		LocationID:  body.LocationID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: detail})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "invalid query parameters")
		return
	}

	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	requests, err := h.requestService.List(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	detail, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// GetRequestLogs handles GET /api/requests/:id/logs
func (h *Handlers) GetRequestLogs(c *gin.Context) {
	logs, err := h.requestService.GetLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: logs})
}

// UpdateRequest handles PATCH /api/requests/:id
func (h *Handlers) UpdateRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var body UpdateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	detail, err := h.requestService.Update(c.Request.Context(), c.Param("id"), actor, service.UpdateInput{
		Title:       body.Title,
		Description: body.Description,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// AssignRequest handles POST /api/requests/:id/assign
func (h *Handlers) AssignRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var body AssignRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "technician_id is required")
		return
	}

	detail, err := h.requestService.Assign(c.Request.Context(), c.Param("id"), actor, body.TechnicianID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// AcceptRequest handles POST /api/requests/:id/accept
func (h *Handlers) AcceptRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	detail, err := h.requestService.Accept(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// RejectRequest handles POST /api/requests/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var body ReasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	detail, err := h.requestService.Reject(c.Request.Context(), c.Param("id"), actor, body.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// StartRequest handles POST /api/requests/:id/start
func (h *Handlers) StartRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	detail, err := h.requestService.Start(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// HoldRequest handles POST /api/requests/:id/hold
func (h *Handlers) HoldRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var body ReasonBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, "invalid request body")
			return
		}
	}

	detail, err := h.requestService.Hold(c.Request.Context(), c.Param("id"), actor, body.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// ResumeRequest handles POST /api/requests/:id/resume
func (h *Handlers) ResumeRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	detail, err := h.requestService.Resume(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// CompleteRequest handles POST /api/requests/:id/complete
func (h *Handlers) CompleteRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var body NoteBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, "invalid request body")
			return
		}
	}

	detail, err := h.requestService.Complete(c.Request.Context(), c.Param("id"), actor, body.Note)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// CancelRequest handles POST /api/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	actor, ok := h.resolveActor(c)
	if !ok {
		return
	}

	var body ReasonBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, "invalid request body")
			return
		}
	}

	detail, err := h.requestService.Cancel(c.Request.Context(), c.Param("id"), actor, body.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// resolveActor loads the caller identity from the X-Actor-ID header. It
// writes the error response itself and returns ok=false when resolution
// fails.
func (h *Handlers) resolveActor(c *gin.Context) (service.Actor, bool) {
	actorID := c.GetHeader(actorHeader)
	if actorID == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   &ErrorBody{Code: "MISSING_ACTOR", Message: "X-Actor-ID header is required"},
		})
		return service.Actor{}, false
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), actorID)
	if err != nil {
		h.logger.Error("Failed to resolve actor", "actor_id", actorID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   &ErrorBody{Code: "INTERNAL_ERROR", Message: "failed to resolve actor"},
		})
		return service.Actor{}, false
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   &ErrorBody{Code: "UNKNOWN_ACTOR", Message: "unknown actor"},
		})
		return service.Actor{}, false
	}

	return service.Actor{ID: user.ID, Name: user.Name, Role: user.Role}, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   &ErrorBody{Code: "VALIDATION_ERROR", Message: msg},
	})
}

// writeError maps a lifecycle error to its HTTP status. Non-lifecycle
// errors are logged and surfaced as opaque 500s.
func (h *Handlers) writeError(c *gin.Context, err error) {
	var e *request.Error
	if !errors.As(err, &e) {
		h.logger.Error("Request handling failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   &ErrorBody{Code: "INTERNAL_ERROR", Message: "internal server error"},
		})
		return
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case request.KindNotFound:
		status = http.StatusNotFound
	case request.KindForbidden:
		status = http.StatusForbidden
	case request.KindIllegalTransition:
		status = http.StatusConflict
	case request.KindValidation, request.KindTechnicianNotFound:
		status = http.StatusBadRequest
	}

	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorBody{Code: e.Code, Message: e.Message},
	})
}
