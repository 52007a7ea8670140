package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/filedexbot/filedex/internal/authz"
	"github.com/filedexbot/filedex/internal/files"
)

const filesRequestTimeout = 5 * time.Second

// FilesHandler exposes the search index to operators over HTTP.
type FilesHandler struct {
	logger *slog.Logger
	store  *files.Store
	gate   *authz.Gate
}

func NewFilesHandler(log *slog.Logger, store *files.Store, gate *authz.Gate) *FilesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FilesHandler{
		logger: log.With(slog.String("handler", "files")),
		store:  store,
		gate:   gate,
	}
}

func (h *FilesHandler) Register(e *echo.Echo) {
	e.GET("/api/files/search", h.Search)
	e.GET("/api/files/stats", h.Stats)
	e.GET("/api/chats", h.Chats)
}

func (h *FilesHandler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	page := 1
	if raw := strings.TrimSpace(c.QueryParam("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
		}
		page = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), filesRequestTimeout)
	defer cancel()
	result, err := h.store.Search(ctx, query, page)
	if err != nil {
		if errors.Is(err, files.ErrPageOutOfRange) {
			return echo.NewHTTPError(http.StatusBadRequest, "page out of range")
		}
		h.logger.Error("search failed", slog.String("query", query), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, result)
}

func (h *FilesHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), filesRequestTimeout)
	defer cancel()
	stats, err := h.store.Stats(ctx)
	if err != nil {
		h.logger.Error("stats failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "stats failed")
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *FilesHandler) Chats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"items": h.gate.List(),
	})
}
