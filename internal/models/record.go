package models

import "time"

// SessionRecord is the persisted form of a finished charging session.
type SessionRecord struct {
	ID               int64     `db:"id" json:"id"`
	SessionID        string    `db:"session_id" json:"session_id"`
	OwnerRef         string    `db:"owner_ref" json:"owner_ref"`
	VehicleReg       string    `db:"vehicle_reg" json:"vehicle_reg"`
	EnergyKWh        float64   `db:"energy_kwh" json:"energy_kwh"`
	Cost             float64   `db:"cost" json:"cost"`
	DurationSeconds  float64   `db:"duration_seconds" json:"duration_seconds"`
	ChargePercentage float64   `db:"charge_percentage" json:"charge_percentage"`
	StartTime        time.Time `db:"start_time" json:"start_time"`
	EndTime          time.Time `db:"end_time" json:"end_time"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
