package mapper

import (
	"strings"
	"time"

	"nivel_exporter/internal/types"
)

// StatusLabels holds the words used to render a decoded status register.
type StatusLabels struct {
	Prefix             string
	Running, Stopped   string
	Loaded, Unloaded   string
	Alarm, NoAlarm     string
	Warning, NoWarning string
}

// LabelsPT is the wording of the deployed Portuguese dashboard.
var LabelsPT = StatusLabels{
	Prefix:    "ESTADO:",
	Running:   "LIGADO",
	Stopped:   "PARADO",
	Loaded:    "COM CARGA",
	Unloaded:  "SEM CARGA",
	Alarm:     "COM ALARME",
	NoAlarm:   "SEM ALARME",
	Warning:   "COM AVISO",
	NoWarning: "SEM AVISO",
}

// LabelsEN renders the same flags in English.
var LabelsEN = StatusLabels{
	Prefix:    "ESTADO:",
	Running:   "RUNNING",
	Stopped:   "STOPPED",
	Loaded:    "LOADED",
	Unloaded:  "UNLOADED",
	Alarm:     "ALARM",
	NoAlarm:   "NO-ALARM",
	Warning:   "WARNING",
	NoWarning: "NO-WARNING",
}

// LabelsFor returns the label set for a language code, defaulting to Portuguese.
func LabelsFor(lang string) StatusLabels {
	if strings.EqualFold(strings.TrimSpace(lang), "en") {
		return LabelsEN
	}
	return LabelsPT
}

// BitState reports whether bit is set in register.
// The register is 16 bits wide, so any bit index of 16 or more reads as clear.
func BitState(register int64, bit uint) bool {
	if bit >= registerWidth {
		return false
	}
	return register&(1<<bit) != 0
}

// DecodeStatus extracts the running, loaded, alarm and warning flags.
func DecodeStatus(register int64) types.StatusFlags {
	return types.StatusFlags{
		Running: BitState(register, BitRunning),
		Loaded:  BitState(register, BitLoaded),
		Alarm:   BitState(register, BitAlarm),
		Warning: BitState(register, BitWarning),
	}
}

// StatusText composes the fixed-order status line for flags.
func StatusText(flags types.StatusFlags, labels StatusLabels) string {
	parts := []string{
		labels.Prefix,
		pick(flags.Running, labels.Running, labels.Stopped),
		pick(flags.Loaded, labels.Loaded, labels.Unloaded),
		pick(flags.Alarm, labels.Alarm, labels.NoAlarm),
		pick(flags.Warning, labels.Warning, labels.NoWarning),
	}
	return strings.Join(parts, " ")
}

// UpdateStatusText returns the status line for register, or prev when there is no register.
func UpdateStatusText(register *int64, prev string, labels StatusLabels) string {
	if register == nil {
		return prev
	}
	return StatusText(DecodeStatus(*register), labels)
}

// StatusFlagMap flattens flags into name/value pairs for metric emission.
func StatusFlagMap(flags types.StatusFlags) map[string]bool {
	return map[string]bool{
		FlagRunning: flags.Running,
		FlagLoaded:  flags.Loaded,
		FlagAlarm:   flags.Alarm,
		FlagWarning: flags.Warning,
	}
}

// RelayStates maps each relay key to its state.
func RelayStates(p types.PumpFlags) map[string]bool {
	return map[string]bool{
		RelayPump1:          p.Pump1,
		RelayPump2:          p.Pump2,
		RelayProtectPump1:   p.ProtectPump1,
		RelayProtectPump2:   p.ProtectPump2,
		RelayPumpAux:        p.PumpAux,
		RelayA1ContactPump1: p.A1ContactPump1,
		RelayA1ContactPump2: p.A1ContactPump2,
	}
}

// Indicators returns the relay lamps in dashboard order.
func Indicators(p types.PumpFlags) []types.Indicator {
	states := RelayStates(p)
	result := make([]types.Indicator, 0, len(relayLabels))
	for _, rl := range relayLabels {
		on := states[rl.key]
		result = append(result, types.Indicator{
			Key:   rl.key,
			Label: rl.label,
			On:    on,
			State: pick(on, StateOn, StateOff),
		})
	}
	return result
}

// ParseTime converts an API time string to a time.Time.
// Supports the ISO-8601 and SQL datetime forms served by the array endpoints.
// Strings without a zone are read as local time. Returns the zero time if parsing fails.
func ParseTime(s string) time.Time {
	return ParseTimeIn(s, time.Local)
}

// ParseTimeIn is like ParseTime but reads zone-less strings in loc.
func ParseTimeIn(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	zoned := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000Z07:00",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, l := range zoned {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}

	local := []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, l := range local {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			return t
		}
	}

	return time.Time{}
}

// parseClock parses a bare HH:MM[:SS] label relative to the calendar day of ref.
func parseClock(s string, ref time.Time) time.Time {
	for _, l := range []string{"15:04:05", "15:04"} {
		if c, err := time.Parse(l, strings.TrimSpace(s)); err == nil {
			y, m, d := ref.Date()
			return time.Date(y, m, d, c.Hour(), c.Minute(), c.Second(), 0, ref.Location())
		}
	}
	return time.Time{}
}

// Safe returns the value if non-empty after trimming, otherwise returns the fallback.
func Safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
