package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"AutoTrader/internal/domain/models"
)

func TestJSONFileSinkWritesEntryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "entrada.json")
	sink := NewJSONFileSink(path, sp)

	long := sig("BTC", models.ModeSwing, models.DirectionLong)
	long.Secondary = []float64{104, 110}
	rep := &models.CycleReport{
		ID:         "c1",
		FinishedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Signals: []models.Signal{
			long,
			sig("ETH", models.ModeSwing, models.DirectionNone),
			sig("BTC", models.ModePositional, models.DirectionShort),
		},
	}
	if err := sink.PublishReport(context.Background(), rep); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"generated_at", "swing", "posicional"} {
		if _, ok := raw[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}

	var doc models.EntryFile
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.GeneratedAt != "2024-03-01 09:30:00" {
		t.Fatalf("generated_at = %q", doc.GeneratedAt)
	}
	if len(doc.Swing) != 2 || len(doc.Posicional) != 1 {
		t.Fatalf("groups = %d/%d", len(doc.Swing), len(doc.Posicional))
	}
	first := doc.Swing[0]
	if first.Par != "BTC" || first.Sinal != "LONG" || first.Modo != "swing" || first.Alvo2 == nil || *first.Alvo2 != 104 {
		t.Fatalf("first = %+v", first)
	}
	if doc.Swing[1].Sinal != models.NoEntryLabel {
		t.Fatalf("trendless signal published as %q", doc.Swing[1].Sinal)
	}

	// no temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries", len(entries))
	}
}

func TestBuildEntryFileEmptyGroups(t *testing.T) {
	doc := BuildEntryFile(&models.CycleReport{}, time.UTC)
	b, _ := json.Marshal(doc)
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(b, &raw)
	if string(raw["swing"]) != "[]" || string(raw["posicional"]) != "[]" {
		t.Fatalf("empty groups must encode as [], got %s", b)
	}
}
