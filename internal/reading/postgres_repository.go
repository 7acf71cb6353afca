package reading

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqstream/aqstream/internal/sensor"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL observation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert stores one observation.
func (r *PostgresRepository) Insert(ctx context.Context, o *Observation) error {
	query := `
		INSERT INTO observations (
			id, channel, mean, aqi, aqi_in_range, window_size, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		o.ID,
		string(o.Channel),
		o.Mean,
		o.AQI,
		o.AQIInRange,
		o.WindowSize,
		o.At,
	)
	return err
}

// Latest returns the most recent observation for a channel.
func (r *PostgresRepository) Latest(ctx context.Context, ch sensor.Channel) (*Observation, error) {
	query := `
		SELECT id, channel, mean, aqi, aqi_in_range, window_size, observed_at
		FROM observations
		WHERE channel = $1
		ORDER BY observed_at DESC
		LIMIT 1
	`

	o, err := scanObservation(r.pool.QueryRow(ctx, query, string(ch)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoObservations
		}
		return nil, err
	}
	return o, nil
}

// History returns up to limit observations for a channel, newest first.
func (r *PostgresRepository) History(ctx context.Context, ch sensor.Channel, limit int) ([]*Observation, error) {
	query := `
		SELECT id, channel, mean, aqi, aqi_in_range, window_size, observed_at
		FROM observations
		WHERE channel = $1
		ORDER BY observed_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, string(ch), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []*Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (*Observation, error) {
	var (
		o       Observation
		channel string
	)
	if err := row.Scan(&o.ID, &channel, &o.Mean, &o.AQI, &o.AQIInRange, &o.WindowSize, &o.At); err != nil {
		return nil, err
	}
	o.Channel = sensor.Channel(channel)
	return &o, nil
}
