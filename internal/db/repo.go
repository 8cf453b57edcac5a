package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"intake-chatbot/pkg"
)

// Repository wraps database operations for resolved cases.
type Repository struct {
	DB       *sql.DB
	Notifier *Notifier
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
// notifier may be nil.
func NewRepository(db *sql.DB, notifier *Notifier) *Repository {
	return &Repository{DB: db, Notifier: notifier}
}

// RecordCase stores the outcome of a resolved case and announces it on the
// notification channel.
func (r *Repository) RecordCase(ctx context.Context, rec pkg.CaseRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("invalid case id %q: %w", rec.ID, err)
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO intake_cases
            (id, outcome, provenance, diagnosis, medicine, symptoms, duration_days, allergies, prescription_path, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, rec.Outcome, rec.Provenance, rec.Diagnosis, rec.Medicine,
		rec.Symptoms, rec.DurationDays, rec.Allergies, rec.PrescriptionPath, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	if r.Notifier != nil {
		if err := r.Notifier.Notify(ctx, rec.ID); err != nil {
			return fmt.Errorf("notify case: %w", err)
		}
	}
	return nil
}

// RecentCases returns the latest cases, newest first.
func (r *Repository) RecentCases(ctx context.Context, limit int) ([]pkg.CaseRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, outcome, provenance, diagnosis, medicine, symptoms, duration_days, allergies, prescription_path, created_at
         FROM intake_cases
         ORDER BY created_at DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pkg.CaseRecord
	for rows.Next() {
		var (
			rec  pkg.CaseRecord
			path sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Outcome, &rec.Provenance, &rec.Diagnosis, &rec.Medicine,
			&rec.Symptoms, &rec.DurationDays, &rec.Allergies, &path, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if path.Valid {
			p := path.String
			rec.PrescriptionPath = &p
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
