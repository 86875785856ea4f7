package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-city-crud/app/observability/metrics"
	"github.com/FACorreiaa/go-city-crud/internal/types"
)

var _ Store = (*PostgresCityRepository)(nil)

// PgxIface is the subset of *pgxpool.Pool the repository needs.
type PgxIface interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresCityRepository struct {
	logger  *slog.Logger
	pgpool  PgxIface
	metrics *metrics.AppMetrics
}

func NewCityRepository(pgpool PgxIface, logger *slog.Logger) *PostgresCityRepository {
	return &PostgresCityRepository{
		logger:  logger,
		pgpool:  pgpool,
		metrics: metrics.Get(),
	}
}

func (r *PostgresCityRepository) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, semconv.DBSystemPostgreSQL, attribute.String("db.sql.table", "cities"))
	return otel.Tracer("CityRepository").Start(ctx, name, trace.WithAttributes(attrs...))
}

func (r *PostgresCityRepository) observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("db.operation", op))
	r.metrics.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		r.metrics.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func (r *PostgresCityRepository) All(ctx context.Context) (cities []types.City, err error) {
	ctx, span := r.startSpan(ctx, "All")
	defer span.End()
	defer func(start time.Time) { r.observe(ctx, "select", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "All"))

	query := `
        SELECT id, name, country
        FROM cities
        ORDER BY id`

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching cities: %w", err)
	}
	defer rows.Close()

	cities = make([]types.City, 0)
	for rows.Next() {
		var c types.City
		if err = rows.Scan(&c.ID, &c.Name, &c.Country); err != nil {
			l.ErrorContext(ctx, "Failed to scan city row", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB scan failed")
			return nil, fmt.Errorf("database error scanning city: %w", err)
		}
		cities = append(cities, c)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB rows error")
		return nil, fmt.Errorf("database error iterating cities: %w", err)
	}

	span.SetStatus(codes.Ok, "Cities fetched")
	return cities, nil
}

func (r *PostgresCityRepository) Find(ctx context.Context, id int64) (_ *types.City, err error) {
	ctx, span := r.startSpan(ctx, "Find", attribute.Int64("city.id", id))
	defer span.End()
	defer func(start time.Time) { r.observe(ctx, "select", start, err) }(time.Now())

	query := `
        SELECT id, name, country
        FROM cities
        WHERE id = $1`

	var c types.City
	if err = r.pgpool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Country); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("city %d: %w", id, types.ErrNotFound)
			span.SetStatus(codes.Error, "City not found")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("failed to find city: %w", err)
	}

	span.SetStatus(codes.Ok, "City found")
	return &c, nil
}

func (r *PostgresCityRepository) Append(ctx context.Context, city types.City) (_ *types.City, err error) {
	ctx, span := r.startSpan(ctx, "Append")
	defer span.End()
	defer func(start time.Time) { r.observe(ctx, "insert", start, err) }(time.Now())

	query := `
        INSERT INTO cities (name, country)
        VALUES ($1, $2)
        RETURNING id`

	if err = r.pgpool.QueryRow(ctx, query, city.Name, city.Country).Scan(&city.ID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("failed to insert city: %w", err)
	}

	span.SetAttributes(attribute.Int64("city.id", city.ID))
	span.SetStatus(codes.Ok, "City inserted")
	return &city, nil
}

func (r *PostgresCityRepository) Replace(ctx context.Context, id int64, mutate func(*types.City)) (_ *types.City, err error) {
	ctx, span := r.startSpan(ctx, "Replace", attribute.Int64("city.id", id))
	defer span.End()
	defer func(start time.Time) { r.observe(ctx, "update", start, err) }(time.Now())

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var c types.City
	err = tx.QueryRow(ctx, `
        SELECT id, name, country
        FROM cities
        WHERE id = $1
        FOR UPDATE`, id).Scan(&c.ID, &c.Name, &c.Country)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("city %d: %w", id, types.ErrNotFound)
			span.SetStatus(codes.Error, "City not found")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("failed to lock city: %w", err)
	}

	mutate(&c)
	c.ID = id

	if _, err = tx.Exec(ctx, `
        UPDATE cities
        SET name = $2, country = $3, updated_at = NOW()
        WHERE id = $1`, c.ID, c.Name, c.Country); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return nil, fmt.Errorf("failed to update city: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "City updated")
	return &c, nil
}

func (r *PostgresCityRepository) Remove(ctx context.Context, id int64) (err error) {
	ctx, span := r.startSpan(ctx, "Remove", attribute.Int64("city.id", id))
	defer span.End()
	defer func(start time.Time) { r.observe(ctx, "delete", start, err) }(time.Now())

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM cities WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("failed to delete city: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("city %d: %w", id, types.ErrNotFound)
		span.SetStatus(codes.Error, "City not found")
		return err
	}

	span.SetStatus(codes.Ok, "City deleted")
	return nil
}
