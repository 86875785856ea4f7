package city

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-city-crud/internal/api"
	"github.com/FACorreiaa/go-city-crud/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewCityHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		panic("PANIC: Attempting to create city Handler with nil logger!")
	}
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// parseCityID reads the {id} URL parameter. ok is false when it is not an integer.
func parseCityID(r *http.Request) (raw string, id int64, ok bool) {
	raw = chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	return raw, id, err == nil
}

func notFoundMessage(raw string) string {
	return fmt.Sprintf("City with ID %s does not exist.", raw)
}

// GetAllCities handles GET /cities
func (h *Handler) GetAllCities(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "GetAllCities")
	defer span.End()

	l := h.logger.With(slog.String("method", "GetAllCities"))

	cities, err := h.service.GetAllCities(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.WriteServiceError(w, r, l, err, "")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, cities)
	l.DebugContext(ctx, "Successfully returned cities", slog.Int("count", len(cities)))
	span.SetStatus(codes.Ok, "Cities returned successfully")
}

// GetCity handles GET /cities/{id}
func (h *Handler) GetCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "GetCity")
	defer span.End()

	l := h.logger.With(slog.String("method", "GetCity"))

	raw, id, ok := parseCityID(r)
	span.SetAttributes(attribute.String("city.id", raw))
	if !ok {
		span.SetStatus(codes.Error, "Invalid city ID")
		api.ErrorResponse(w, r, http.StatusNotFound, api.ErrTitleNotFound, notFoundMessage(raw))
		return
	}

	city, err := h.service.GetCity(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.WriteServiceError(w, r, l, err, notFoundMessage(raw))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, city)
	span.SetStatus(codes.Ok, "City returned successfully")
}

// CreateCity handles POST /cities
func (h *Handler) CreateCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "CreateCity")
	defer span.End()

	l := h.logger.With(slog.String("method", "CreateCity"))

	var req types.CreateCityRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.WriteServiceError(w, r, l, err, "")
		return
	}

	city, err := h.service.CreateCity(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.WriteServiceError(w, r, l, err, "")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, city)
	span.SetAttributes(attribute.Int64("city.id", city.ID))
	span.SetStatus(codes.Ok, "City created")
}

// UpdateCity handles PUT /cities/{id}
func (h *Handler) UpdateCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "UpdateCity")
	defer span.End()

	l := h.logger.With(slog.String("method", "UpdateCity"))

	var req types.UpdateCityRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.WriteServiceError(w, r, l, err, "")
		return
	}

	raw, id, ok := parseCityID(r)
	span.SetAttributes(attribute.String("city.id", raw))
	if !ok {
		span.SetStatus(codes.Error, "Invalid city ID")
		api.ErrorResponse(w, r, http.StatusNotFound, api.ErrTitleNotFound, "City not found.")
		return
	}

	city, err := h.service.UpdateCity(ctx, id, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.WriteServiceError(w, r, l, err, "City not found.")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, city)
	span.SetStatus(codes.Ok, "City updated")
}

// DeleteCity handles DELETE /cities/{id}
func (h *Handler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "DeleteCity")
	defer span.End()

	l := h.logger.With(slog.String("method", "DeleteCity"))

	raw, id, ok := parseCityID(r)
	span.SetAttributes(attribute.String("city.id", raw))
	if !ok {
		api.ErrorResponse(w, r, http.StatusNotFound, api.ErrTitleNotFound, "City not found.")
		return
	}

	if err := h.service.DeleteCity(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.WriteServiceError(w, r, l, err, "City not found.")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.DeleteCityResponse{
		Message: "City deleted successfully",
		ID:      id,
	})
	span.SetStatus(codes.Ok, "City deleted")
}
