package api

import (
	"time"

	"github.com/labstack/echo/v4"

	models "FlowTrack/internal/domain/models"
	domrepo "FlowTrack/internal/domain/repository"
	"FlowTrack/internal/services/accumulation"
	"FlowTrack/internal/usecase"
	xhttp "FlowTrack/pkg/http"
	xlogger "FlowTrack/pkg/logger"
	"FlowTrack/pkg/util"
)

// AlertsHandler exposes the alert log, positioning, levels, and source
// status over Echo.
type AlertsHandler struct {
	logger  *xlogger.Logger
	emitter *usecase.Emitter
	scanner *usecase.Scanner
	tracker *accumulation.Tracker
	archive domrepo.Archive // nil when archiving is disabled
}

func NewAlertsHandler(logger *xlogger.Logger, emitter *usecase.Emitter, scanner *usecase.Scanner, tracker *accumulation.Tracker, archive domrepo.Archive) *AlertsHandler {
	return &AlertsHandler{logger: logger, emitter: emitter, scanner: scanner, tracker: tracker, archive: archive}
}

func (h *AlertsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/alerts", h.Alerts)
	g.GET("/alerts/summary", h.Summary)
	g.GET("/alerts/archive", h.Archive)
	g.GET("/positioning/:symbol", h.Positioning)
	g.GET("/levels/:symbol", h.Levels)
	g.GET("/status", h.Status)
}

func (h *AlertsHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	f := usecase.LogFilter{
		Symbol:        req.Symbol,
		Direction:     models.Direction(req.Direction),
		Type:          models.SignalType(req.Type),
		Decision:      models.Decision(req.Decision),
		MinConviction: req.MinConviction,
		MinPremium:    req.MinPremium,
		Limit:         req.Limit,
	}
	if ts, ok := util.ParseTime(req.Since); ok {
		f.Since = ts
	}
	rows := h.emitter.Log(f)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *AlertsHandler) Summary(c echo.Context) error {
	s := h.emitter.Summary()
	s.Positioning = h.tracker.Snapshot()
	return xhttp.SuccessResponse(c, s)
}

func (h *AlertsHandler) Archive(c echo.Context) error {
	if h.archive == nil {
		return xhttp.NotFoundResponse(c, "archive disabled")
	}
	req := &models.ArchiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from := util.ParseTimeDefault(req.From, time.Now().Add(-24*time.Hour))
	to := util.ParseTimeDefault(req.To, time.Now())

	rows, err := h.archive.Query(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("archive query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *AlertsHandler) Positioning(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, map[string]any{
		"symbol":      req.Symbol,
		"positioning": h.tracker.Positioning(req.Symbol),
		"history":     h.tracker.History(req.Symbol),
	})
}

func (h *AlertsHandler) Levels(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.scanner.Levels(req.Symbol))
}

func (h *AlertsHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.scanner.Status())
}
