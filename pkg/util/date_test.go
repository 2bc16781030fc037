package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeUnixMillis(t *testing.T) {
    want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got, ok := ParseTime(strconv.FormatInt(want.UnixMilli(), 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if !got.Equal(want) {
        t.Fatalf("got %v, want %v", got, want)
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestTimeframeDuration(t *testing.T) {
    cases := []struct {
        tf   string
        want time.Duration
        ok   bool
    }{
        {"15m", 15 * time.Minute, true},
        {"4h", 4 * time.Hour, true},
        {"1d", 24 * time.Hour, true},
        {"1w", 7 * 24 * time.Hour, true},
        {"h", 0, false},
        {"0h", 0, false},
        {"4x", 0, false},
    }
    for _, c := range cases {
        got, ok := TimeframeDuration(c.tf)
        if ok != c.ok || got != c.want {
            t.Fatalf("%s: got (%v,%v), want (%v,%v)", c.tf, got, ok, c.want, c.ok)
        }
    }
}

func TestBucketStart(t *testing.T) {
    ts := time.Date(2025, 3, 1, 13, 47, 0, 0, time.UTC)
    got := BucketStart(ts, "4h")
    want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("got %v, want %v", got, want)
    }
}

func TestDateHourSaoPaulo(t *testing.T) {
    loc := LoadLocation("America/Sao_Paulo")
    // 02:30 UTC is 23:30 of the previous day at UTC-3
    ts := time.Date(2025, 6, 2, 2, 30, 0, 0, time.UTC)
    d, h := DateHour(ts, loc)
    if d != "2025-06-01" || h != "23:30" {
        t.Fatalf("got %s %s", d, h)
    }
}

func TestLoadLocationUnknown(t *testing.T) {
    if LoadLocation("Nowhere/Invalid") != time.UTC {
        t.Fatalf("expected UTC fallback")
    }
}
