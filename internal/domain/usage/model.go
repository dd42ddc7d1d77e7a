package usage

import (
	"time"

	"github.com/google/uuid"
)

type Source string

const (
	SourceAPI Source = "api"
	SourceMCP Source = "mcp"
	SourceCLI Source = "cli"
	SourceSDK Source = "sdk"
)

// ValidSource reports whether s is one of the known request origins.
func ValidSource(s Source) bool {
	switch s {
	case SourceAPI, SourceMCP, SourceCLI, SourceSDK:
		return true
	}
	return false
}

// Daily is one aggregate row per (organization, day, source, endpoint).
// Counters only ever grow within a day.
type Daily struct {
	OrganizationID uuid.UUID `db:"organization_id"`
	Date           time.Time `db:"usage_date"`
	Source         Source    `db:"source"`
	Endpoint       string    `db:"endpoint"`
	RequestCount   int64     `db:"request_count"`
	TokensUsed     int64     `db:"tokens_used"`
}

// MonthlyTotals is the month-to-date rollup consumed by the quota check and
// the usage reporting endpoint.
type MonthlyTotals struct {
	TotalRequests int64
	TotalTokens   int64
}

// MonthStart returns midnight on the first day of the month containing t,
// in t's location. The server's calendar is authoritative; per-organization
// timezones are deliberately unsupported.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// NextMonthStart returns the instant the quota window rolls over.
func NextMonthStart(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// DayStart returns the usage_date bucket for t: midnight UTC on t's own
// calendar date. Bucketing by calendar date rather than epoch truncation
// keeps the row date stable for timestamps in any location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
