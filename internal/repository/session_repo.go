package repository

import (
	"context"
	"database/sql"
	"time"

	"rupeeflow/internal/models"
)

// SessionRepository archives finished charging sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns the repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SaveCompleted inserts a final summary. Session ids are unique per run, so the
// upsert only fires when a stop is retried for the same session.
func (r *SessionRepository) SaveCompleted(ctx context.Context, summary models.FinalSummary) error {
	const query = `
		INSERT INTO charging_sessions (session_id, owner_ref, vehicle_reg, energy_kwh, cost, duration_seconds, charge_percentage, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			energy_kwh = EXCLUDED.energy_kwh,
			cost = EXCLUDED.cost,
			duration_seconds = EXCLUDED.duration_seconds,
			charge_percentage = EXCLUDED.charge_percentage,
			end_time = EXCLUDED.end_time
	`
	startTime, err := time.Parse(time.RFC3339, summary.StartTime)
	if err != nil {
		startTime = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, query,
		summary.SessionID,
		summary.OwnerRef,
		summary.VehicleReg,
		summary.TotalKwh,
		summary.TotalAmount,
		summary.DurationSeconds,
		summary.ChargePercentage,
		startTime,
		time.Now().UTC(),
	)
	return err
}

// GetSessionsByOwner returns the owner's most recent finished sessions.
func (r *SessionRepository) GetSessionsByOwner(ctx context.Context, ownerRef string, limit int) ([]models.SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, session_id, owner_ref, vehicle_reg, energy_kwh, cost, duration_seconds, charge_percentage, start_time, end_time, created_at
		FROM charging_sessions
		WHERE owner_ref = $1
		ORDER BY start_time DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, ownerRef, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		var rec models.SessionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.OwnerRef,
			&rec.VehicleReg,
			&rec.EnergyKWh,
			&rec.Cost,
			&rec.DurationSeconds,
			&rec.ChargePercentage,
			&rec.StartTime,
			&rec.EndTime,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
