package natsutil

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{Subject: "t"}
	c := (*headerCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Fatalf("empty carrier returned %q", got)
	}
	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("got %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Fatalf("keys %v", keys)
	}
	// The header must land on the underlying message.
	if msg.Header.Get("traceparent") == "" {
		t.Fatal("header not written to message")
	}
}

func TestInjectExtractRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	msg := &nats.Msg{Subject: "t"}
	otel.GetTextMapPropagator().Inject(context.Background(), (*headerCarrier)(msg))

	// No recording span in the context, so nothing to propagate; Extract
	// must still return a usable context.
	if ctx := Extract(msg); ctx == nil {
		t.Fatal("nil context from Extract")
	}
}
