// Connection HTTP handlers.
//
// This file exposes REST endpoints for the connection resolution core:
//   - POST /connections          (save the desired connection set)
//   - GET  /connections          (read resolved connections of one root)
//   - GET  /connections/history  (paged change log of one root)
//   - GET  /connections/channel  (relations keyed by channel root ids)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vrk-kpa/ptv-registry/internal/http/middleware"
	"github.com/vrk-kpa/ptv-registry/internal/repo"
	"github.com/vrk-kpa/ptv-registry/internal/services"
	"github.com/vrk-kpa/ptv-registry/internal/translate"
	"github.com/vrk-kpa/ptv-registry/internal/utils"
)

//
// Service contracts (context-aware)
//

// ConnectionService defines the connection use-cases consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConnectionService interface {
	// Save reconciles the desired connection set of mainRootID.
	Save(ctx context.Context, editor, mainRootID string, desired []translate.ConnectionWriteModel) error
	// List returns the resolved, ordered connections of mainRootID.
	List(ctx context.Context, mainRootID string) ([]translate.ConnectionReadModel, error)
	// ServiceChannelRelations returns live service relations keyed by
	// the requested channel root ids.
	ServiceChannelRelations(ctx context.Context, rootIDs []string) (map[string][]translate.ConnectionReadModel, error)
}

// HistoryService defines the connection history projection consumed by
// HTTP handlers.
type HistoryService interface {
	// Page computes one page of history entries for mainRootID.
	Page(ctx context.Context, mainRootID string, pageNumber int, prevIDs []string) (*services.HistoryPage, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the connection core. It depends
// on abstract service interfaces to keep transport concerns separate
// from business logic.
type Handlers struct {
	connSvc    ConnectionService
	historySvc HistoryService

	// IdempotencyTTL bounds how long a completed save can be replayed
	// via its Idempotency-Key. Zero keeps the 24h default.
	IdempotencyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(connSvc ConnectionService, historySvc HistoryService) *Handlers {
	return &Handlers{connSvc: connSvc, historySvc: historySvc, IdempotencyTTL: 24 * time.Hour}
}

// userID extracts the authenticated user id from Gin context (set by
// upstream middleware). If absent, it falls back to "X-User-ID" header
// (tests use it), and finally to "demo-user". It never touches c.Request
// if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// idempotencyKey reads the Idempotency-Key header directly so the save
// endpoint honors retries even when the validator middleware is not
// installed (e.g., in isolation tests).
func idempotencyKey(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

// saveDB exposes the service's DB handle for idempotency bookkeeping.
// Stub services used in tests return nil and skip the bookkeeping.
func (h *Handlers) saveDB() *gorm.DB {
	if svc, ok := h.connSvc.(*services.ConnectionService); ok {
		return svc.DB
	}
	return nil
}

//
// DTOs
//

// SaveConnectionsRequest is the JSON payload for saving the desired
// connection set of a main entity.
type SaveConnectionsRequest struct {
	// UnificRootID is the main entity's stable root id.
	UnificRootID string `json:"unificRootId" binding:"required" example:"0ff71cbe-6a13-4df1-b0ee-5d20f38ad331"`
	// SelectedConnections is the desired set in display order.
	SelectedConnections []translate.ConnectionWriteModel `json:"selectedConnections"`
}

// ListConnectionsResponse wraps the resolved connections of one root.
type ListConnectionsResponse struct {
	Connections []translate.ConnectionReadModel `json:"connections"`
}

// ChannelRelationsResponse maps channel root ids to their live service
// relations.
type ChannelRelationsResponse struct {
	Relations map[string][]translate.ConnectionReadModel `json:"relations"`
}

//
// Handlers
//

// SaveConnections godoc
// @ID          saveConnections
// @Summary     Save the desired connection set of a main entity
// @Description Reconciles the desired service↔channel connections of the given unific root atomically: new pairs are created, existing pairs updated, absent pairs removed (ASTI-imported rows excepted), and order numbers reassigned.
// @Tags        Connections
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.SaveConnectionsRequest  true  "Desired connection set"
//
// @Success     204  "Saved"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Save failed"
// @Router      /connections [post]
func (h *Handlers) SaveConnections(c *gin.Context) {
	var req SaveConnectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	rootID := strings.TrimSpace(req.UnificRootID)
	editor := userID(c)

	// Serve a completed retry without re-running the reconciliation.
	idemKey := idempotencyKey(c)
	if idemKey != "" {
		if db := h.saveDB(); db != nil {
			if rec, err := repo.GetIdempotency(c.Request.Context(), db, editor, rootID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				c.Header("Idempotency-Replayed", "true")
				noContent(c)
				return
			}
		}
	}

	err := h.connSvc.Save(c.Request.Context(), editor, rootID, req.SelectedConnections)
	switch {
	case err == nil:
		if idemKey != "" {
			if db := h.saveDB(); db != nil {
				// Best-effort: a failed insert only means the retry will
				// re-run the (idempotent) reconciliation.
				ttl := h.IdempotencyTTL
				if ttl <= 0 {
					ttl = 24 * time.Hour
				}
				_, _ = repo.CreateIdempotency(c.Request.Context(), db, editor, rootID, idemKey, http.StatusNoContent, ttl)
			}
		}
		noContent(c)
	case errors.Is(err, services.ErrMainRootRequired),
		errors.Is(err, services.ErrUnknownChargeType),
		errors.Is(err, services.ErrUnknownLanguage),
		errors.Is(err, services.ErrDuplicatePair):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		// Reconciliation failures surface as a generic save failure.
		fail(c, http.StatusInternalServerError, ErrCodeSaveFailed, "save failed")
	}
}

// ListConnections godoc
// @ID          listConnections
// @Summary     List the resolved connections of a main entity
// @Description Returns the live connections of the given unific root, each projected through the connected entity's applicable version. Unresolvable connected entities are omitted.
// @Tags        Connections
// @Produce     json
//
// @Param       id  query  string  true  "Main unific root id"
//
// @Success     200  {object}  handlers.ListConnectionsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "List failed"
// @Router      /connections [get]
func (h *Handlers) ListConnections(c *gin.Context) {
	rootID := strings.TrimSpace(c.Query("id"))
	if rootID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter 'id' is required")
		return
	}

	items, err := h.connSvc.List(c.Request.Context(), rootID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "listing connections failed")
		return
	}
	ok(c, http.StatusOK, ListConnectionsResponse{Connections: items})
}

// ConnectionHistory godoc
// @ID          connectionHistory
// @Summary     Page through the connection history of a main entity
// @Description Derives Added/Deleted/Modified/Unchanged/Detached entries from the stored rows. The prevEntities accumulator guarantees an id is never re-emitted across pages.
// @Tags        Connections
// @Produce     json
//
// @Param       id           query  string  true   "Main unific root id"
// @Param       pageNumber   query  int     false  "Page number (1-based)"
// @Param       prevEntities query  string  false  "Comma-separated ids already returned"
//
// @Success     200  {object}  services.HistoryPage
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "History failed"
// @Router      /connections/history [get]
func (h *Handlers) ConnectionHistory(c *gin.Context) {
	rootID := strings.TrimSpace(c.Query("id"))
	if rootID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter 'id' is required")
		return
	}
	pageNumber := utils.AtoiDefault(c.Query("pageNumber"), 1)
	prevIDs := utils.SplitIDList(c.Query("prevEntities"))

	page, err := h.historySvc.Page(c.Request.Context(), rootID, pageNumber, prevIDs)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeHistoryFailed, "connection history failed")
		return
	}
	ok(c, http.StatusOK, page)
}

// ChannelRelations godoc
// @ID          channelRelations
// @Summary     List live service relations for a set of channel roots
// @Description For every requested channel root id, returns the join rows whose service side resolves to an accepted publishing status. Requested roots with no passing rows are absent from the map.
// @Tags        Connections
// @Produce     json
//
// @Param       ids  query  string  true  "Comma-separated channel unific root ids"
//
// @Success     200  {object}  handlers.ChannelRelationsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "List failed"
// @Router      /connections/channel [get]
func (h *Handlers) ChannelRelations(c *gin.Context) {
	ids := utils.SplitIDList(c.Query("ids"))
	if len(ids) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter 'ids' is required")
		return
	}

	relations, err := h.connSvc.ServiceChannelRelations(c.Request.Context(), ids)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "listing relations failed")
		return
	}
	ok(c, http.StatusOK, ChannelRelationsResponse{Relations: relations})
}
