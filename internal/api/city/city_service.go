package city

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-city-crud/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for city operations.
type Service interface {
	GetAllCities(ctx context.Context) ([]types.City, error)
	GetCity(ctx context.Context, id int64) (*types.City, error)
	CreateCity(ctx context.Context, req types.CreateCityRequest) (*types.City, error)
	UpdateCity(ctx context.Context, id int64, req types.UpdateCityRequest) (*types.City, error)
	DeleteCity(ctx context.Context, id int64) error
}

// ServiceImpl validates requests and applies them to a Store.
type ServiceImpl struct {
	logger *slog.Logger
	store  Store
}

func NewCityService(store Store, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		store:  store,
	}
}

// GetAllCities returns every stored city in insertion order.
func (s *ServiceImpl) GetAllCities(ctx context.Context) ([]types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "GetAllCities")
	defer span.End()

	l := s.logger.With(slog.String("method", "GetAllCities"))
	l.DebugContext(ctx, "Fetching all cities")

	cities, err := s.store.All(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch cities")
		return nil, fmt.Errorf("error fetching cities: %w", err)
	}

	span.SetStatus(codes.Ok, "Cities fetched successfully")
	return cities, nil
}

// GetCity returns the city with the given id.
func (s *ServiceImpl) GetCity(ctx context.Context, id int64) (*types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "GetCity", trace.WithAttributes(
		attribute.Int64("city.id", id),
	))
	defer span.End()

	city, err := s.store.Find(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch city")
		return nil, fmt.Errorf("error fetching city: %w", err)
	}

	span.SetStatus(codes.Ok, "City fetched successfully")
	return city, nil
}

// CreateCity validates the request and stores the trimmed city.
func (s *ServiceImpl) CreateCity(ctx context.Context, req types.CreateCityRequest) (*types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "CreateCity")
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateCity"))

	if err := validateCreate(req); err != nil {
		l.InfoContext(ctx, "Rejected invalid city", slog.Any("error", err))
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	city, err := s.store.Append(ctx, types.City{
		Name:    strings.TrimSpace(req.Name),
		Country: strings.TrimSpace(req.Country),
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to store city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store city")
		return nil, fmt.Errorf("error creating city: %w", err)
	}

	l.InfoContext(ctx, "City created", slog.Int64("id", city.ID))
	span.SetAttributes(attribute.Int64("city.id", city.ID))
	span.SetStatus(codes.Ok, "City created successfully")
	return city, nil
}

// UpdateCity overwrites the supplied fields of an existing city.
// At least one field must be supplied; absent fields keep their value.
func (s *ServiceImpl) UpdateCity(ctx context.Context, id int64, req types.UpdateCityRequest) (*types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "UpdateCity", trace.WithAttributes(
		attribute.Int64("city.id", id),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateCity"), slog.Int64("id", id))

	if err := validateUpdate(req); err != nil {
		l.InfoContext(ctx, "Rejected invalid city update", slog.Any("error", err))
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	city, err := s.store.Replace(ctx, id, func(c *types.City) {
		if req.Name != nil {
			c.Name = strings.TrimSpace(*req.Name)
		}
		if req.Country != nil {
			c.Country = strings.TrimSpace(*req.Country)
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update city")
		return nil, fmt.Errorf("error updating city: %w", err)
	}

	l.InfoContext(ctx, "City updated")
	span.SetStatus(codes.Ok, "City updated successfully")
	return city, nil
}

// DeleteCity removes the city with the given id.
func (s *ServiceImpl) DeleteCity(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("CityService").Start(ctx, "DeleteCity", trace.WithAttributes(
		attribute.Int64("city.id", id),
	))
	defer span.End()

	if err := s.store.Remove(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete city")
		return fmt.Errorf("error deleting city: %w", err)
	}

	s.logger.InfoContext(ctx, "City deleted", slog.Int64("id", id))
	span.SetStatus(codes.Ok, "City deleted successfully")
	return nil
}
