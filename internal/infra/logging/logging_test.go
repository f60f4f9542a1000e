//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"clm-paralegal/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithTraceID(context.Background(), "tr-1")
	ctx = WithSessID(ctx, "s1")
	ctx = WithAgent(ctx, "risk_analysis")
	With(ctx, base).Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	for k, want := range map[string]string{"trace_id": "tr-1", "session_id": "s1", "agent": "risk_analysis", "message": "hello"} {
		if got[k] != want {
			t.Errorf("%s=%v want %q", k, got[k], want)
		}
	}
	if TraceID(ctx) != "tr-1" {
		t.Errorf("TraceID=%q", TraceID(ctx))
	}
}

func TestRedact(t *testing.T) {
	cases := []struct {
		in   string
		dev  bool
		want string
	}{
		{"short", false, "***"},
		{"The Supplier shall deliver", false, "The ...er"},
		{"The Supplier shall deliver", true, "The Supplier shall deliver"},
		{"Übereinkunft über", false, "Über...er"},
	}
	for _, tc := range cases {
		if got := Redact(tc.in, tc.dev); got != tc.want {
			t.Errorf("Redact(%q,%v)=%q want %q", tc.in, tc.dev, got, tc.want)
		}
	}
}
