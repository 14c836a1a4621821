package kds

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/kds/internal/ticket"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// StreamHandler upgrades a request into a live board subscription.
type StreamHandler interface {
	ServeMonitor(w http.ResponseWriter, r *http.Request, monitorID string)
}

type Handler struct {
	projector *Projector
	commander *Commander
	printer   TicketPrinter
	stream    StreamHandler
	logger    apt.Logger
	config    *apt.Config
	tlm       *telemetry.HTTP
	now       func() time.Time
}

type HandlerDeps struct {
	Projector *Projector
	Commander *Commander
	Printer   TicketPrinter
	Stream    StreamHandler
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		projector: hd.Projector,
		commander: hd.Commander,
		printer:   hd.Printer,
		stream:    hd.Stream,
		logger:    logger,
		config:    config,
		tlm:       telemetry.NewHTTP(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/monitors", func(r chi.Router) {
		r.Get("/", h.ListMonitors)
		r.Get("/{id}/board", h.GetBoard)
		r.Get("/{id}/history", h.GetHistory)
		r.Get("/{id}/stream", h.StreamBoard)
	})

	r.Get("/tables", h.ListTables)

	r.Route("/lines", func(r chi.Router) {
		r.Patch("/{id}/{action}", h.TransitionLine)
	})

	r.Route("/tickets/{id}", func(r chi.Router) {
		r.Patch("/courses/{course}/{action}", h.CourseAction)
		r.Get("/preview", h.PreviewTicket)
		r.Post("/print", h.PrintTicket)
	})

	r.Post("/reload", h.Reload)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

func (h *Handler) ListMonitors(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMonitors")
	defer finish()

	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"monitors": h.projector.Monitors(),
	}, nil)
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetBoard")
	defer finish()
	h.respondBoard(w, r, BoardActive)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetHistory")
	defer finish()
	h.respondBoard(w, r, BoardHistory)
}

func (h *Handler) respondBoard(w http.ResponseWriter, r *http.Request, kind BoardKind) {
	board, err := h.projector.Board(chi.URLParam(r, "id"), kind)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	apt.Respond(w, http.StatusOK, board, nil)
}

func (h *Handler) StreamBoard(w http.ResponseWriter, r *http.Request) {
	monitorID := chi.URLParam(r, "id")
	if _, err := h.projector.Monitor(monitorID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if h.stream == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Live updates are not available")
		return
	}
	h.stream.ServeMonitor(w, r, monitorID)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"tables": h.projector.Tables(),
	}, nil)
}

func (h *Handler) TransitionLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.TransitionLine")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid line ID")
		return
	}

	action, ok := ParseAction(chi.URLParam(r, "action"))
	if !ok {
		apt.RespondError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	if err := h.checkMonitor(r, action); err != nil {
		h.respondErr(w, r, err)
		return
	}

	out, err := h.commander.Transition(ctx, action, id)
	if err != nil {
		log.Info("line command rejected", "line_id", id, "action", action, "error", err)
		h.respondErr(w, r, err)
		return
	}

	if out.Changed {
		h.refresh(r)
	}
	apt.Respond(w, http.StatusOK, out, nil)
}

func (h *Handler) CourseAction(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CourseAction")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	ticketID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	course, err := strconv.Atoi(chi.URLParam(r, "course"))
	if err != nil || course < 1 {
		apt.RespondError(w, http.StatusBadRequest, "Invalid course number")
		return
	}

	name := chi.URLParam(r, "action")
	switch name {
	case "march", "unmarch":
		if name == "march" {
			err = h.commander.March(ctx, ticketID, course)
		} else {
			err = h.commander.Unmarch(ctx, ticketID, course)
		}
		if err != nil {
			log.Info("course flag not changed", "ticket_id", ticketID, "course", course, "error", err)
			h.respondErr(w, r, err)
			return
		}
		h.refresh(r)
		apt.Respond(w, http.StatusOK, map[string]interface{}{
			"ticket_id":  ticketID,
			"course":     course,
			"is_marched": name == "march",
		}, nil)
		return
	}

	action, ok := ParseAction(name)
	if !ok {
		apt.RespondError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	if err := h.checkMonitor(r, action); err != nil {
		h.respondErr(w, r, err)
		return
	}

	result, err := h.commander.ApplyToCourse(ctx, action, ticketID, course)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	if len(result.Applied) > 0 {
		h.refresh(r)
	}
	apt.Respond(w, http.StatusOK, result, nil)
}

func (h *Handler) PreviewTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PreviewTicket")
	defer finish()

	tk, _, ok := h.printout(w, r)
	if !ok {
		return
	}

	raw, err := ticket.RenderESCPOS(tk)
	if err != nil {
		h.log(r).Errorf("cannot render ticket: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not render ticket")
		return
	}

	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"text":   ticket.RenderText(tk),
		"escpos": ticket.Encode(raw),
	}, nil)
}

func (h *Handler) PrintTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PrintTicket")
	defer finish()
	log := h.log(r)

	tk, info, ok := h.printout(w, r)
	if !ok {
		return
	}

	if h.printer == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Printing is not configured")
		return
	}

	st := station.ByNameOrDefault(r.URL.Query().Get("station"))
	jobID, err := h.printer.Print(r.Context(), info.LocationID, st, tk)
	if err != nil {
		log.Errorf("cannot print ticket %s: %v", info.TicketID, err)
		apt.RespondError(w, http.StatusBadGateway, "Could not deliver print job")
		return
	}

	apt.Respond(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  jobID,
		"station": st.Code(),
	}, nil)
}

func (h *Handler) printout(w http.ResponseWriter, r *http.Request) (ticket.Ticket, TicketInfo, bool) {
	ticketID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return ticket.Ticket{}, TicketInfo{}, false
	}

	name := r.URL.Query().Get("station")
	st := station.ByName(name)
	if st == nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid station")
		return ticket.Ticket{}, TicketInfo{}, false
	}

	info, tk, err := h.projector.Printout(ticketID, *st, nil, h.now())
	if err != nil {
		h.respondErr(w, r, err)
		return ticket.Ticket{}, TicketInfo{}, false
	}
	return tk, info, true
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Reload")
	defer finish()

	if err := h.projector.Reload(r.Context()); err != nil {
		h.log(r).Errorf("reload failed: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not reload boards")
		return
	}

	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"monitors": len(h.projector.Monitors()),
		"tables":   len(h.projector.Tables()),
	}, nil)
}

// checkMonitor refuses actions whose button the calling monitor hides.
func (h *Handler) checkMonitor(r *http.Request, action Action) error {
	monitorID := r.URL.Query().Get("monitor")
	if monitorID == "" {
		return nil
	}
	m, err := h.projector.Monitor(monitorID)
	if err != nil {
		return err
	}
	if !m.Allows(action) {
		return ErrActionDisabled
	}
	return nil
}

// refresh re-derives the boards after a write. The change feed triggers the
// same reload; a failure here only delays the update.
func (h *Handler) refresh(r *http.Request) {
	if err := h.projector.Reload(r.Context()); err != nil {
		h.log(r).Error("reload after command failed", "error", err)
	}
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrLineNotFound):
		apt.RespondError(w, http.StatusNotFound, "Line not found")
	case errors.Is(err, ErrCourseNotFound):
		apt.RespondError(w, http.StatusNotFound, "Course not found")
	case errors.Is(err, ErrTicketNotFound):
		apt.RespondError(w, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, ErrMonitorNotFound):
		apt.RespondError(w, http.StatusNotFound, "Monitor not found")
	case errors.Is(err, ErrActionDisabled):
		apt.RespondError(w, http.StatusForbidden, "Action disabled on this monitor")
	case errors.Is(err, ErrPrecondition):
		apt.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrMalformedLine):
		apt.RespondError(w, http.StatusBadRequest, "Malformed ticket line")
	default:
		h.log(r).Errorf("request failed: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not complete request")
	}
}
