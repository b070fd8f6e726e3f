package ws

import "encoding/json"

// Inbound command names.
const (
	CommandStart            = "start"
	CommandStop             = "stop"
	CommandResume           = "resume"
	CommandRegisterObserver = "registerObserver"
)

// Outbound event names.
const (
	EventStarted     = "started"
	EventReading     = "reading"
	EventStopped     = "stopped"
	EventResumed     = "resumed"
	EventResumeError = "resumeError"
	EventError       = "error"
)

// CommandEnvelope is the inbound frame: {"event": "...", "data": {...}}.
type CommandEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EventEnvelope is the outbound frame.
type EventEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// StartCommand requests a new charging session. Rate and charger power fall back to
// configured defaults when omitted.
type StartCommand struct {
	VehicleReg            string  `json:"vehicle_reg"`
	BatteryCapacityKwh    float64 `json:"battery_capacity_kwh"`
	InitialBatteryPercent float64 `json:"initial_battery_percent"`
	RatePerKwh            float64 `json:"rate_per_kwh"`
	ChargerPowerKw        float64 `json:"charger_power_kw"`
	ObserverKey           string  `json:"observer_key"`
	StationName           string  `json:"station_name"`
	DisplayName           string  `json:"display_name"`
}

// StopCommand halts a running session.
type StopCommand struct {
	SessionID string `json:"session_id"`
}

// ResumeCommand restarts a stopped session.
type ResumeCommand struct {
	SessionID string `json:"session_id"`
}

// RegisterObserverCommand subscribes the connection to a station's readings.
type RegisterObserverCommand struct {
	ObserverKey string `json:"observer_key"`
}

// StartedEvent acknowledges session creation.
type StartedEvent struct {
	SessionID string `json:"session_id"`
}

// ResumedEvent acknowledges a resume.
type ResumedEvent struct {
	SessionID string `json:"session_id"`
}

// ResumeErrorEvent reports a rejected resume.
type ResumeErrorEvent struct {
	Reason string `json:"reason"`
}

// ErrorEvent reports a failed command.
type ErrorEvent struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// Decode unmarshals a command payload.
func Decode[T any](data json.RawMessage) (T, error) {
	var target T
	if len(data) == 0 {
		return target, nil
	}
	if err := json.Unmarshal(data, &target); err != nil {
		var zero T
		return zero, err
	}
	return target, nil
}
