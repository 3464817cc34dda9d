// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/warden/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/warden/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
// The pool is owned by the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const recordColumns = `id, incident_id, incident, decision, summary, advice_status, advice,
	created_at, completed_at, advice_duration_s`

// Get retrieves a triage record by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + recordColumns + ` FROM triage_records WHERE id = $1`
	r, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetByIncident retrieves the most recent triage record for an incident.
func (s *Store) GetByIncident(ctx context.Context, incidentID string) (*triage.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetByIncident", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + recordColumns + ` FROM triage_records
		WHERE incident_id = $1 ORDER BY created_at DESC LIMIT 1`
	r, err := scanRecord(s.pool.QueryRow(ctx, query, incidentID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts or updates a triage record.
func (s *Store) Put(ctx context.Context, r *triage.Record) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	incidentJSON, err := json.Marshal(r.Incident)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}
	decisionJSON, err := json.Marshal(r.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	var summaryJSON, adviceJSON []byte
	if r.Summary != nil {
		if summaryJSON, err = json.Marshal(r.Summary); err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
	}
	if r.Advice != nil {
		if adviceJSON, err = json.Marshal(r.Advice); err != nil {
			return fmt.Errorf("marshal advice: %w", err)
		}
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO triage_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
		advice_status     = EXCLUDED.advice_status,
		advice            = EXCLUDED.advice,
		completed_at      = EXCLUDED.completed_at,
		advice_duration_s = EXCLUDED.advice_duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Incident.IncidentID, incidentJSON, decisionJSON, summaryJSON,
		string(r.AdviceStatus), adviceJSON, r.CreatedAt, completedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// scanRecord scans a single row into a triage.Record.
// Returns (nil, nil) when no row is found.
func scanRecord(row pgx.Row) (*triage.Record, error) {
	var (
		r            triage.Record
		incidentJSON []byte
		decisionJSON []byte
		summaryJSON  []byte
		adviceJSON   []byte
		status       string
		incidentID   string
		completedAt  *time.Time
	)

	err := row.Scan(
		&r.ID, &incidentID, &incidentJSON, &decisionJSON, &summaryJSON,
		&status, &adviceJSON, &r.CreatedAt, &completedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.AdviceStatus = triage.AdviceStatus(status)
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}

	if err := json.Unmarshal(incidentJSON, &r.Incident); err != nil {
		return nil, fmt.Errorf("unmarshal incident: %w", err)
	}
	if err := json.Unmarshal(decisionJSON, &r.Decision); err != nil {
		return nil, fmt.Errorf("unmarshal decision: %w", err)
	}
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &r.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
	}
	if len(adviceJSON) > 0 {
		if err := json.Unmarshal(adviceJSON, &r.Advice); err != nil {
			return nil, fmt.Errorf("unmarshal advice: %w", err)
		}
	}

	return &r, nil
}
