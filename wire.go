package monica

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NicholasRalph243/open-monica/bat"
)

// Protocol verbs. Matching is case-insensitive; "preceeding" is a historical
// misspelling kept for client compatibility.
const (
	verbNames       = "names"
	verbPoll        = "poll"
	verbPoll2       = "poll2"
	verbSince       = "since"
	verbBetween     = "between"
	verbPreceding   = "preceding"
	verbPreceeding  = "preceeding"
	verbFollowing   = "following"
	verbDetails     = "details"
	verbSet         = "set"
	verbAck         = "ack"
	verbShelve      = "shelve"
	verbAlarms      = "alarms"
	verbAllAlarms   = "allalarms"
	verbRSA         = "rsa"
	verbRSAPersist  = "rsapersist"
	verbLeapSeconds = "leapseconds"
	verbExit        = "exit"
)

// Inline protocol error lines, reproduced byte-for-byte from the legacy
// interface.
const (
	replyNoSuchPoint    = "? Named point doesn't exist"
	replyBadCount       = "? Couldn't parse item count"
	replyNeedTwoStamps  = "? Need two BAT timestamps and a point name argument"
	replyBadFirstStamp  = "? First BAT timestamp couldn't be parsed"
	replyBadSecondStamp = "? Second BAT timestamp couldn't be parsed"
	replyNeedStampName  = "? Need BAT timestamp and point name arguments"
	replyBadStamp       = "? BAT timestamp couldn't be parsed"
	replyNeedStampPair  = "? Need BAT timestamp and a point name argument"
	replyExpectSetItem  = "? Expect name, type code and value. Tab delimited."
	replyExpectAckItem  = "? Expect name, and acknowledgement value. Tab delimited."

	replyOK    = "OK"
	replyError = "ERROR"
)

// parseSetValue converts the typed value of a set item. Type codes follow
// the legacy interface: int, flt, dbl, str, bool and abst (a BAT timestamp).
func parseSetValue(typeCode, raw string) (any, error) {
	switch typeCode {
	case "int":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", raw)
		}
		return v, nil
	case "flt":
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("bad float %q", raw)
		}
		return float32(v), nil
	case "dbl":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("bad double %q", raw)
		}
		return v, nil
	case "str":
		return raw, nil
	case "bool":
		return parseWireBool(raw), nil
	case "abst":
		v, err := bat.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q", raw)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown type code %q", typeCode)
	}
}

// parseWireBool follows the legacy boolean convention: "true" in any case is
// true, anything else is false.
func parseWireBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// formatValue renders a sample value for the wire.
func formatValue(v any) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprint(v)
}

// formatPeriod renders a point's update period as seconds.
func formatPeriod(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
