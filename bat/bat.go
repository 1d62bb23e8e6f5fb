// Package bat implements the telescope absolute time scale used on the
// monitor protocol wire. A BAT is the number of microseconds of atomic time
// (TAI) elapsed since the MJD epoch, 1858-11-17 00:00:00 UTC, and travels on
// the wire as a hexadecimal integer with an optional "0x" prefix.
package bat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Time is a BAT timestamp in microseconds since the MJD epoch.
type Time int64

const (
	// Microsecond is the base resolution of the BAT scale.
	Microsecond Time = 1

	// Second is one second on the BAT scale.
	Second = 1000000 * Microsecond

	// Seconds between the MJD epoch and the Unix epoch (40587 days).
	mjdToUnixSeconds = 40587 * 86400
)

// ErrBadTimestamp indicates a wire timestamp that could not be parsed.
var ErrBadTimestamp = errors.New("malformed BAT timestamp")

// Parse decodes a hexadecimal wire timestamp. The "0x" prefix is optional
// and hex digits may be in either case.
func Parse(s string) (Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if s == "" {
		return 0, ErrBadTimestamp
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	return Time(v), nil
}

// String renders the timestamp in the wire format.
func (t Time) String() string {
	return fmt.Sprintf("0x%x", int64(t))
}

// Before reports whether t is earlier than u.
func (t Time) Before(u Time) bool {
	return t < u
}

// After reports whether t is later than u.
func (t Time) After(u Time) bool {
	return t > u
}

// Add returns t shifted by the given duration.
func (t Time) Add(d time.Duration) Time {
	return t + Time(d.Microseconds())
}

// FromTime converts a civil (UTC) time to BAT, applying the leap-second
// offset in force at that instant.
func FromTime(tt time.Time) Time {
	utc := tt.UTC()
	sec := utc.Unix() + mjdToUnixSeconds + int64(Offset(utc))
	return Time(sec)*Second + Time(utc.Nanosecond()/1000)
}

// UTC converts a BAT back to civil time. The leap-second offset is resolved
// against the uncorrected instant, which is exact everywhere except within a
// second of a leap-second boundary.
func (t Time) UTC() time.Time {
	sec := int64(t/Second) - mjdToUnixSeconds
	usec := int64(t % Second)
	approx := time.Unix(sec, usec*1000).UTC()
	return time.Unix(sec-int64(Offset(approx)), usec*1000).UTC()
}

// Now returns the current time on the BAT scale.
func Now() Time {
	return FromTime(time.Now())
}
