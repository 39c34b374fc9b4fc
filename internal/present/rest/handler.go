package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/domain"
	"github.com/skymirror/skymirror/internal/present/rest/presenter"
	"github.com/skymirror/skymirror/internal/service"
	"github.com/skymirror/skymirror/internal/usecase"
)

type Handler struct {
	config domain.Config
	index  *usecase.IndexUsecase
	signal *service.SignalService
}

func NewHandler(
	config domain.Config,
	index *usecase.IndexUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		config: config,
		index:  index,
		signal: signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.POST("/api/v1/query", h.handleQuery)
	e.GET("/api/v1/record", h.handleRecord)
	e.GET("/api/v1/labels", h.handleLabels)
	e.GET("/api/v1/actors/search", h.handleActorSearch)
	e.PUT("/api/v1/actors/:did/seen", h.handleActorSeen)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

type queryRequest struct {
	Collection string `json:"collection"`
	Count      bool   `json:"count,omitempty"`
	skymirror.QueryOptions
}

func (h *Handler) handleQuery(c echo.Context) error {
	ctx := c.Request().Context()

	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Collection == "" {
		return presenter.BadRequestMessage(c, "collection is required")
	}

	if req.Count {
		count, err := h.index.Count(ctx, req.Collection, req.QueryOptions)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCondition) {
				return presenter.BadRequest(c, err)
			}
			return presenter.InternalError(c, err)
		}
		return presenter.OK(c, echo.Map{"count": count})
	}

	page, err := h.index.Query(ctx, req.Collection, req.QueryOptions)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCondition) {
			return presenter.BadRequest(c, err)
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, page)
}

func (h *Handler) handleRecord(c echo.Context) error {
	ctx := c.Request().Context()

	uri := c.QueryParam("uri")
	if uri == "" {
		return presenter.BadRequestMessage(c, "uri parameter is required")
	}

	record, err := h.index.Get(ctx, uri)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "record not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, record)
}

func (h *Handler) handleLabels(c echo.Context) error {
	ctx := c.Request().Context()

	subjects := splitParam(c.QueryParam("subjects"))
	if len(subjects) == 0 {
		return presenter.BadRequestMessage(c, "subjects parameter is required")
	}
	issuers := splitParam(c.QueryParam("issuers"))

	labels, err := h.index.Labels(ctx, subjects, issuers)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"labels": labels})
}

func (h *Handler) handleActorSearch(c echo.Context) error {
	ctx := c.Request().Context()

	query := c.QueryParam("q")
	if query == "" {
		return presenter.BadRequestMessage(c, "q parameter is required")
	}

	actors, err := h.index.SearchActors(ctx, query)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"actors": actors})
}

type seenRequest struct {
	SeenAt string `json:"seenAt"`
}

func (h *Handler) handleActorSeen(c echo.Context) error {
	ctx := c.Request().Context()

	did := c.Param("did")
	if !skymirror.IsDID(did) {
		return presenter.BadRequestMessage(c, "invalid did")
	}

	var req seenRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.SeenAt == "" {
		req.SeenAt = time.Now().UTC().Format(time.RFC3339)
	}

	err := h.index.MarkNotificationsSeen(ctx, did, req.SeenAt)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "actor not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) handleRealtime(c echo.Context) error {
	did := c.QueryParam("did")
	if !skymirror.IsDID(did) {
		return presenter.BadRequestMessage(c, "invalid did")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx := c.Request().Context()

	h.signal.AddSocket(did, ws)
	defer h.signal.RemoveSocket(did, ws)

	// The signal service owns all writes; this loop only drains the
	// socket until the client goes away.
	for {
		_, _, err := ws.ReadMessage()
		if err != nil {
			wsErr, ok := err.(*websocket.CloseError)
			if ok {
				if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
					slog.DebugContext(
						ctx, "WebSocket closed",
						slog.String("error", wsErr.Error()),
						slog.String("module", "socket"),
					)
				}
			} else {
				slog.ErrorContext(
					ctx, "Error reading message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
			}
			return nil
		}
	}
}
