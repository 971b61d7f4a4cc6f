// Package mapper derives dashboard display values from polled water-tank samples.
package mapper

import "time"

// Status register bit positions
const (
	BitRunning = 1
	BitLoaded  = 2
	BitAlarm   = 6
	BitWarning = 7

	// registerWidth is the number of decodable bits; higher indices read as clear.
	registerWidth = 16
)

// Consumption-rate units
const (
	UnitLitersPerMinute  = "L/min"
	UnitPercentPerMinute = "%/min"
)

// Chart window geometry
const (
	WindowSpan   = 2 * time.Hour
	TickInterval = 30 * time.Minute

	// referenceLookback is how far back the consumption estimator looks for its reference sample.
	referenceLookback = time.Hour
)

// Relay indicator keys
const (
	RelayPump1          = "pump1"
	RelayPump2          = "pump2"
	RelayProtectPump1   = "protect_pump1"
	RelayProtectPump2   = "protect_pump2"
	RelayPumpAux        = "pump_aux"
	RelayA1ContactPump1 = "a1_contact_pump1"
	RelayA1ContactPump2 = "a1_contact_pump2"
)

// Indicator state texts
const (
	StateOn  = "Ligado"
	StateOff = "Desligado"
)

// Status flag names, used as metric label values
const (
	FlagRunning = "running"
	FlagLoaded  = "loaded"
	FlagAlarm   = "alarm"
	FlagWarning = "warning"
)

// Prometheus metric label names
const (
	LabelTank  = "tank"
	LabelRelay = "relay"
	LabelFlag  = "flag"
	LabelUnit  = "unit"
)

// relayLabels lists the dashboard indicators in display order.
var relayLabels = []struct {
	key   string
	label string
}{
	{RelayPump1, "Bomba 1"},
	{RelayPump2, "Bomba 2"},
	{RelayProtectPump1, "Proteção Bomba 1"},
	{RelayProtectPump2, "Proteção Bomba 2"},
	{RelayPumpAux, "Bomba Auxiliar"},
	{RelayA1ContactPump1, "Contato A1 Bomba 1"},
	{RelayA1ContactPump2, "Contato A1 Bomba 2"},
}
