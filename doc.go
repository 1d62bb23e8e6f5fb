// Package monica implements the ASCII access layer of the open-monica
// telemetry monitoring system: a line-oriented text protocol over long-lived
// TCP sessions through which clients read current and historical monitor
// point values, receive alarm state, and (when authenticated) write values
// or acknowledge and shelve alarms. It provides both the server engine and a
// protocol client.
package monica
