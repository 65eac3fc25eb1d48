package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"spotbook/internal/bookings/service"
	apperrors "spotbook/pkg/errors"
	httputil "spotbook/pkg/http"
	"spotbook/pkg/logger"
	"spotbook/pkg/middleware"
	"spotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

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

// bookingList is the envelope every listing endpoint returns.
type bookingList struct {
	Bookings any `json:"Bookings"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	spotID := ps.ByName("spotId")

	var dates model.BookingDates
	if err := json.NewDecoder(r.Body).Decode(&dates); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
			Code:  apperrors.CodeInvalidInput,
		})
		return
	}

	booking, err := h.service.Create(r.Context(), actor, spotID, &dates, time.Now().UTC())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, booking)
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	bookingID := ps.ByName("bookingId")

	var dates model.BookingDates
	if err := json.NewDecoder(r.Body).Decode(&dates); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
			Code:  apperrors.CodeInvalidInput,
		})
		return
	}

	booking, err := h.service.Update(r.Context(), actor, bookingID, &dates, time.Now().UTC())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	bookingID := ps.ByName("bookingId")

	if err := h.service.Delete(r.Context(), actor, bookingID, time.Now().UTC()); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteMessage(w, "Successfully deleted")
}

func (h *BookingHandler) ListForSpot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	spotID := ps.ByName("spotId")

	result, err := h.service.ListForSpot(r.Context(), actor, spotID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if result.OwnerView {
		httputil.WriteSuccess(w, bookingList{Bookings: result.WithUsers})
		return
	}
	httputil.WriteSuccess(w, bookingList{Bookings: result.DatesOnly})
}

func (h *BookingHandler) ListForUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListForUser(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, bookingList{Bookings: bookings})
}

// actor pulls the authenticated user from the request context. The auth
// middleware guarantees it is set on every registered route; the check here
// covers handlers wired without the middleware.
func (h *BookingHandler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := middleware.ActorFrom(r.Context())
	if actor == "" {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return "", false
	}
	return actor, true
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/bookings/current", h.ListForUser)
	router.GET("/api/spots/:spotId/bookings", h.ListForSpot)
	router.POST("/api/spots/:spotId/bookings", h.Create)
	router.PUT("/api/bookings/:bookingId", h.Update)
	router.DELETE("/api/bookings/:bookingId", h.Delete)
}
