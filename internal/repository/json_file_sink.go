package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"AutoTrader/internal/domain/models"
)

// JSONFileSink writes the entry file consumed by the trading bot.
// The file is replaced atomically so readers never see a partial document.
type JSONFileSink struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

func NewJSONFileSink(path string, loc *time.Location) *JSONFileSink {
	if loc == nil {
		loc = time.UTC
	}
	return &JSONFileSink{path: path, loc: loc}
}

func (s *JSONFileSink) PublishReport(_ context.Context, r *models.CycleReport) error {
	if r == nil {
		return nil
	}
	doc := BuildEntryFile(r, s.loc)
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entry file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path, b)
}

// BuildEntryFile groups the report signals by mode, keeping report order.
func BuildEntryFile(r *models.CycleReport, loc *time.Location) models.EntryFile {
	doc := models.EntryFile{
		GeneratedAt: r.FinishedAt.In(loc).Format("2006-01-02 15:04:05"),
		Swing:       []models.SignalPayload{},
		Posicional:  []models.SignalPayload{},
	}
	for _, sg := range r.Signals {
		switch sg.Mode {
		case models.ModeSwing:
			doc.Swing = append(doc.Swing, sg.Payload())
		case models.ModePositional:
			doc.Posicional = append(doc.Posicional, sg.Payload())
		}
	}
	return doc
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
