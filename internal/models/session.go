package models

import "time"

// SessionStatus describes the lifecycle state of a live charging session.
type SessionStatus string

const (
	SessionStatusRunning SessionStatus = "running"
	SessionStatusStopped SessionStatus = "stopped"
)

// SessionSnapshot is an immutable copy of a live session's state.
type SessionSnapshot struct {
	ID                    string        `json:"session_id"`
	OwnerRef              string        `json:"owner_ref"`
	VehicleReg            string        `json:"vehicle_reg"`
	StationName           string        `json:"station_name,omitempty"`
	DisplayName           string        `json:"display_name,omitempty"`
	BatteryCapacityKwh    float64       `json:"battery_capacity_kwh"`
	InitialBatteryPercent float64       `json:"initial_battery_percent"`
	RatePerKwh            float64       `json:"rate_per_kwh"`
	ChargerPowerKw        float64       `json:"charger_power_kw"`
	Status                SessionStatus `json:"status"`
	StartedAt             time.Time     `json:"started_at"`
	SecondsElapsed        float64       `json:"seconds_elapsed"`
	TotalEnergyKwh        float64       `json:"total_energy_kwh"`
	TotalCost             float64       `json:"total_cost"`
	ObserverKey           string        `json:"observer_key,omitempty"`
	ConnectionID          string        `json:"-"`
}

// Reading is a point-in-time meter reading pushed to the charging owner. Energy and
// cost are rounded to 2 decimal places, percentage to 1; the live session keeps full
// precision internally.
type Reading struct {
	SessionID             string  `json:"session_id"`
	SecondsElapsed        float64 `json:"seconds_elapsed"`
	TotalKwh              float64 `json:"total_kwh"`
	TotalCost             float64 `json:"total_cost"`
	CurrentPowerKw        float64 `json:"current_power_kw"`
	ChargePercentage      float64 `json:"charge_percentage"`
	InitialBatteryPercent float64 `json:"initial_battery_percent"`
}

// ObserverReading is a Reading enriched with session identity so station operators
// without direct session access can render it.
type ObserverReading struct {
	Reading

	VehicleReg  string `json:"vehicle_reg"`
	StationName string `json:"station_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// FinalSummary is the terminal snapshot produced when a session is stopped.
type FinalSummary struct {
	SessionID             string  `json:"session_id"`
	OwnerRef              string  `json:"owner_ref"`
	VehicleReg            string  `json:"vehicle_reg"`
	TotalKwh              float64 `json:"total_kwh"`
	TotalAmount           float64 `json:"total_amount"`
	DurationSeconds       float64 `json:"duration_seconds"`
	ChargePercentage      float64 `json:"charge_percentage"`
	InitialBatteryPercent float64 `json:"initial_battery_percent"`
	StartTime             string  `json:"start_time"`
}
