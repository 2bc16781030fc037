package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"AutoTrader/internal/domain/models"
	pkgkafka "AutoTrader/pkg/kafka"
)

func TestMultiSinkContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	bad := &failingSink{}
	good := &recordingSink{}
	ms := NewMultiSink(
		[]NamedSignalSink{{Name: "kafka", Sink: bad}, {Name: "board", Sink: good}},
		[]NamedReportSink{{Name: "file", Sink: bad}, {Name: "board", Sink: good}},
		nil, nil,
	)

	err := ms.Publish(ctx, "BTC", models.ModeSwing, sig("BTC", models.ModeSwing, models.DirectionLong))
	if !errors.Is(err, errSink) {
		t.Fatalf("want joined sink error, got %v", err)
	}
	if len(good.signals) != 1 {
		t.Fatal("healthy sink skipped")
	}

	if err := ms.PublishReport(ctx, &models.CycleReport{ID: "c1"}); !errors.Is(err, errSink) {
		t.Fatalf("want joined sink error, got %v", err)
	}
	if len(good.reports) != 1 || bad.calls != 2 {
		t.Fatalf("reports=%d bad calls=%d", len(good.reports), bad.calls)
	}
	if ms.Len() != 4 {
		t.Fatalf("Len = %d", ms.Len())
	}
}

type fakeProducer struct {
	topic   string
	key     string
	value   interface{}
	headers []pkgkafka.Header
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}, headers ...pkgkafka.Header) error {
	f.topic, f.key, f.value, f.headers = topic, string(key), value, headers
	return nil
}

func TestKafkaSignalPublisher(t *testing.T) {
	fp := &fakeProducer{}
	p := &KafkaSignalPublisher{producer: fp, topic: "autotrader.signals"}

	s := sig("BTC", models.ModePositional, models.DirectionLong)
	if err := p.Publish(context.Background(), "BTC", s.Mode, s); err != nil {
		t.Fatal(err)
	}
	if fp.topic != "autotrader.signals" || fp.key != "BTC" {
		t.Fatalf("topic=%s key=%s", fp.topic, fp.key)
	}
	payload, ok := fp.value.(models.SignalPayload)
	if !ok || payload.Modo != "posicional" || payload.Sinal != "LONG" {
		t.Fatalf("payload = %#v", fp.value)
	}
	if len(fp.headers) != 2 || fp.headers[0].Value != "posicional" || fp.headers[1].Value != "eligible" {
		t.Fatalf("headers = %+v", fp.headers)
	}
}

func TestSignalInsert(t *testing.T) {
	rep := &models.CycleReport{ID: "c1", Signals: []models.Signal{
		sig("BTC", models.ModeSwing, models.DirectionLong),
		sig("ETH", models.ModeSwing, models.DirectionNone),
	}}
	q, args := signalInsert("autotrader.signals", rep)
	if !strings.HasPrefix(q, "INSERT INTO autotrader.signals (cycle_id,") {
		t.Fatalf("query = %s", q)
	}
	if strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)") != 2 {
		t.Fatalf("want 2 value rows: %s", q)
	}
	if len(args) != 24 || args[0] != "c1" || args[13] != "ETH" {
		t.Fatalf("args = %v", args)
	}
	if _, ok := args[10].([]float64); !ok {
		t.Fatalf("secondary must be a non-nil slice, got %T", args[10])
	}
}
