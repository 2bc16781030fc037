package util

import (
    "strconv"
    "time"
    _ "time/tzdata" // containers without /usr/share/zoneinfo
)

// ParseTime tries RFC3339, RFC3339Nano, unix seconds and unix milliseconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        // 1e11 seconds is year 5138; anything larger is milliseconds
        if ts > 1e11 {
            return time.UnixMilli(ts).UTC(), true
        }
        return time.Unix(ts, 0).UTC(), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// TimeframeDuration returns the bar length for labels like "15m", "4h", "1d", "1w".
func TimeframeDuration(tf string) (time.Duration, bool) {
    if len(tf) < 2 {
        return 0, false
    }
    n, err := strconv.Atoi(tf[:len(tf)-1])
    if err != nil || n <= 0 {
        return 0, false
    }
    switch tf[len(tf)-1] {
    case 'm':
        return time.Duration(n) * time.Minute, true
    case 'h':
        return time.Duration(n) * time.Hour, true
    case 'd':
        return time.Duration(n) * 24 * time.Hour, true
    case 'w':
        return time.Duration(n) * 7 * 24 * time.Hour, true
    }
    return 0, false
}

// BucketStart truncates t (in UTC) to the opening of its timeframe bar.
func BucketStart(t time.Time, tf string) time.Time {
    d, ok := TimeframeDuration(tf)
    if !ok {
        return t.UTC().Truncate(time.Minute)
    }
    return t.UTC().Truncate(d)
}

// LoadLocation falls back to UTC when the zone is unknown.
func LoadLocation(name string) *time.Location {
    if name == "" {
        return time.UTC
    }
    loc, err := time.LoadLocation(name)
    if err != nil {
        return time.UTC
    }
    return loc
}

// DateHour renders t in loc as ("2006-01-02", "15:04").
func DateHour(t time.Time, loc *time.Location) (string, string) {
    lt := t.In(loc)
    return lt.Format("2006-01-02"), lt.Format("15:04")
}
