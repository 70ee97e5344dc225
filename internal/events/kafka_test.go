package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"agenda/backend/internal/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_PublishWritesTopicKeyAndHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}

	ev := NewAppointmentEvent(AppointmentCreated, "acme", 9, domain.Appointment{
		ID: 12, UnitID: 1, ServiceID: 2, StaffID: 3,
		Date: "2026-03-09", Start: "10:00", End: "11:00",
		PriceCents: 5000, Status: domain.AppointmentPending,
	})
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != string(AppointmentCreated) {
		t.Fatalf("topic = %q, want %q", msg.Topic, AppointmentCreated)
	}
	if string(msg.Key) != "acme:12" {
		t.Fatalf("key = %q, want acme:12", msg.Key)
	}
	if headerValue(msg.Headers, "event_id") != ev.ID || headerValue(msg.Headers, "tenant_id") != "acme" {
		t.Fatalf("headers = %+v", msg.Headers)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload decode error: %v", err)
	}
	if decoded.Appointment.ID != 12 || decoded.ActorID != 9 || decoded.Appointment.Start != "10:00" {
		t.Fatalf("decoded payload = %+v", decoded)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("Close = %v, closed=%v", err, w.closed)
	}
}

func TestKafkaPublisher_FixedTopic(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, topic: "agenda.appointments"}
	if err := p.Publish(context.Background(), NewAppointmentEvent(AppointmentUpdated, "acme", 0, domain.Appointment{ID: 3})); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if w.msgs[0].Topic != "agenda.appointments" {
		t.Fatalf("topic = %q, want agenda.appointments", w.msgs[0].Topic)
	}
	if headerValue(w.msgs[0].Headers, "event_type") != string(AppointmentUpdated) {
		t.Fatalf("event_type header = %q", headerValue(w.msgs[0].Headers, "event_type"))
	}
}

func TestKafkaPublisher_PropagatesWriteError(t *testing.T) {
	want := errors.New("broker down")
	p := &KafkaPublisher{w: &fakeWriter{err: want}}
	err := p.Publish(context.Background(), NewAppointmentEvent(AppointmentRemoved, "acme", 0, domain.Appointment{ID: 1}))
	if !errors.Is(err, want) {
		t.Fatalf("Publish err = %v, want %v", err, want)
	}
}

func TestInjectTraceHeaders_AddsTraceparent(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "event_id", Value: []byte("e1")}})
	got := headerValue(headers, "traceparent")
	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got != want {
		t.Fatalf("traceparent = %q, want %q", got, want)
	}
	if headerValue(headers, "event_id") != "e1" {
		t.Fatalf("existing headers were dropped: %+v", headers)
	}
}

func TestReadyCheck_RequiresBrokers(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatalf("expected ReadyCheck to fail without brokers")
	}
}
