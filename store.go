package monica

import (
	"strconv"
	"strings"
	"time"

	"github.com/NicholasRalph243/open-monica/bat"
)

// Sample is one observation of a monitor point.
type Sample struct {
	Time  bat.Time
	Value any
	Alarm bool
}

// PointDetail is the static description of a monitor point.
type PointDetail struct {
	Name        string
	Units       string
	Description string
	Period      time.Duration
}

// Alarm is the full state of one alarm point.
type Alarm struct {
	Point        string
	Priority     int
	Alarmed      bool
	Acknowledged bool
	AckedBy      string
	AckedAt      bat.Time
	Shelved      bool
	ShelvedBy    string
	ShelvedAt    bat.Time
	Guidance     string
}

// WireString renders the alarm in the tab-delimited form sent by the alarms
// and allalarms commands. Absent user/time fields render as "null".
func (a Alarm) WireString() string {
	var b strings.Builder
	b.WriteString(a.Point)
	b.WriteByte('\t')
	b.WriteString(strconv.Itoa(a.Priority))
	b.WriteByte('\t')
	b.WriteString(strconv.FormatBool(a.Alarmed))
	b.WriteByte('\t')
	b.WriteString(strconv.FormatBool(a.Acknowledged))
	b.WriteByte('\t')
	b.WriteString(nullable(a.AckedBy))
	b.WriteByte('\t')
	b.WriteString(nullableTime(a.Acknowledged, a.AckedAt))
	b.WriteByte('\t')
	b.WriteString(strconv.FormatBool(a.Shelved))
	b.WriteByte('\t')
	b.WriteString(nullable(a.ShelvedBy))
	b.WriteByte('\t')
	b.WriteString(nullableTime(a.Shelved, a.ShelvedAt))
	b.WriteString("\t\"")
	b.WriteString(a.Guidance)
	b.WriteByte('"')
	return b.String()
}

func nullable(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

func nullableTime(set bool, t bat.Time) string {
	if !set {
		return "null"
	}
	return t.String()
}

// PointStore is the narrow interface to the point catalogue and time-series
// storage. The protocol engine never owns this data; implementations must
// tolerate concurrent access from many sessions.
type PointStore interface {
	// PointNames returns the names of all known monitor points.
	PointNames() []string

	// Exists reports whether the named point is known.
	Exists(name string) bool

	// Details returns the static description of a point.
	Details(name string) (PointDetail, bool)

	// Latest returns the most recent sample of a point, if any.
	Latest(name string) (Sample, bool)

	// Range returns the samples inside [start, end], in time order.
	Range(name string, start, end bat.Time) ([]Sample, error)

	// Preceding returns the nearest sample at or before t.
	Preceding(name string, t bat.Time) (Sample, bool)

	// Following returns the nearest sample at or after t.
	Following(name string, t bat.Time) (Sample, bool)

	// Set records a client-supplied value for a point.
	Set(name string, s Sample) error
}

// AlarmStore is the narrow interface to the alarm registry.
type AlarmStore interface {
	// Current returns the alarms presently in an alarmed, acknowledged or
	// shelved state.
	Current() []Alarm

	// All returns every known alarm.
	All() []Alarm

	// SetAcknowledged marks an alarm acknowledged (or not) on behalf of the
	// given identity.
	SetAcknowledged(point string, v bool, by string, t bat.Time) error

	// SetShelved marks an alarm shelved (or not) on behalf of the given
	// identity.
	SetShelved(point string, v bool, by string, t bat.Time) error
}

// nopPointStore backs a server configured without a point store.
type nopPointStore struct{}

func (nopPointStore) PointNames() []string                            { return nil }
func (nopPointStore) Exists(string) bool                              { return false }
func (nopPointStore) Details(string) (PointDetail, bool)              { return PointDetail{}, false }
func (nopPointStore) Latest(string) (Sample, bool)                    { return Sample{}, false }
func (nopPointStore) Range(string, bat.Time, bat.Time) ([]Sample, error) { return nil, nil }
func (nopPointStore) Preceding(string, bat.Time) (Sample, bool)       { return Sample{}, false }
func (nopPointStore) Following(string, bat.Time) (Sample, bool)       { return Sample{}, false }
func (nopPointStore) Set(string, Sample) error                        { return ErrPointNotFound }

// nopAlarmStore backs a server configured without an alarm store.
type nopAlarmStore struct{}

func (nopAlarmStore) Current() []Alarm { return nil }
func (nopAlarmStore) All() []Alarm     { return nil }
func (nopAlarmStore) SetAcknowledged(string, bool, string, bat.Time) error {
	return ErrPointNotFound
}
func (nopAlarmStore) SetShelved(string, bool, string, bat.Time) error {
	return ErrPointNotFound
}
