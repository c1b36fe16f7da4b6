package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"roombook/internal/bookings/service"
	apperrors "roombook/pkg/errors"
	httputil "roombook/pkg/http"
	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomResponse struct {
	model.Room
	Label string `json:"label"`
}

func toRoomResponses(rooms []model.Room) []RoomResponse {
	out := make([]RoomResponse, len(rooms))
	for i, r := range rooms {
		out[i] = RoomResponse{Room: r, Label: r.Label()}
	}
	return out
}

// BookingSummary is the listing view. Contact details and titles stay
// private to the person who booked.
type BookingSummary struct {
	ID        int                 `json:"booking_id"`
	Date      string              `json:"date"`
	StartTime string              `json:"start_time"`
	EndTime   string              `json:"end_time"`
	Room      string              `json:"room"`
	Name      string              `json:"name"`
	Status    model.BookingStatus `json:"status"`
}

func toSummaries(bookings []*model.Booking) []BookingSummary {
	out := make([]BookingSummary, len(bookings))
	for i, b := range bookings {
		out[i] = BookingSummary{
			ID:        b.ID,
			Date:      b.Date,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Room:      b.Room,
			Name:      b.Name,
			Status:    b.Status,
		}
	}
	return out
}

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Rooms(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	httputil.WriteSuccess(w, toRoomResponses(h.service.Rooms()))
}

func (h *BookingHandler) AvailableRooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	rooms, err := h.service.AvailableRooms(r.Context(), query.Get("date"), query.Get("start_time"), query.Get("end_time"))
	if err != nil {
		h.writeError(w, "AvailableRooms", err)
		return
	}

	httputil.WriteSuccess(w, toRoomResponses(rooms))
}

func (h *BookingHandler) StartTimes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	times, err := h.service.StartTimes(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, "StartTimes", err)
		return
	}

	httputil.WriteSuccess(w, times)
}

func (h *BookingHandler) EndTimes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	times, err := h.service.EndTimes(r.URL.Query().Get("start_time"))
	if err != nil {
		h.writeError(w, "EndTimes", err)
		return
	}

	httputil.WriteSuccess(w, times)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.BookingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	result, err := h.service.Create(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	httputil.WriteCreated(w, result.Booking, result.Warnings()...)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw := r.URL.Query().Get("filter")
	filter, ok := model.ParseListFilter(raw)
	if !ok {
		h.writeError(w, "List", apperrors.InvalidInput(fmt.Sprintf(
			"invalid filter parameter: %s (expected one of all, active, upcoming, past)", raw)))
		return
	}

	bookings, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	httputil.WriteSuccess(w, toSummaries(bookings))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.Atoi(ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", apperrors.InvalidInput(fmt.Sprintf("invalid booking id: %s", ps.ByName("id"))))
		return
	}

	var input model.CancelInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, "Cancel", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if strings.TrimSpace(input.Email) == "" {
		h.writeError(w, "Cancel", apperrors.Validation("email is required", map[string]any{
			"fields": map[string]any{"email": "email is required"},
		}))
		return
	}

	result, err := h.service.Cancel(r.Context(), id, input.Email)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteSuccess(w, result.Booking, result.Warnings()...)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if apperrors.HasCode(err, apperrors.CodeInternal) || !apperrors.IsAppError(err) {
		h.log.Error("Request failed", "handler", handler, "error", err)
	}
	httputil.WriteError(w, err)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rooms", h.Rooms)
	router.GET("/api/v1/rooms/available", h.AvailableRooms)
	router.GET("/api/v1/slots/start", h.StartTimes)
	router.GET("/api/v1/slots/end", h.EndTimes)
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.List)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
}
