package persistence

import (
	"testing"
	"time"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

func TestCodec_RoundTrip(t *testing.T) {
	decided := time.Date(2026, 1, 7, 9, 30, 0, 0, time.UTC)
	in := []api.Approval{
		{ApproverID: "m1", Decision: api.DecisionApprove, Note: "ok", DecidedAt: decided},
		{ApproverID: "m2", Decision: api.DecisionReject, Note: "too costly", DecidedAt: decided.Add(time.Minute)},
	}

	data, err := EncodeValue(in)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}

	out, err := DecodeValue[[]api.Approval](data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("decoded %d approvals, want 2", len(out))
	}
	if out[0].ApproverID != "m1" || out[0].Decision != api.DecisionApprove || !out[0].DecidedAt.Equal(decided) {
		t.Fatalf("first approval mismatch: %+v", out[0])
	}
	if out[1].Note != "too costly" {
		t.Fatalf("second approval mismatch: %+v", out[1])
	}
}

func TestCodec_NilAndEmpty(t *testing.T) {
	data, err := EncodeValue(nil)
	if err != nil {
		t.Fatalf("EncodeValue(nil): %v", err)
	}
	if data != nil {
		t.Fatalf("nil must encode to nil, got %d bytes", len(data))
	}

	out, err := DecodeValue[[]string](nil)
	if err != nil {
		t.Fatalf("DecodeValue(nil): %v", err)
	}
	if out != nil {
		t.Fatalf("empty input must yield the zero value, got %v", out)
	}
}

func TestCodec_OptionalSLA(t *testing.T) {
	anchored := time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)
	responded := anchored.Add(10 * time.Minute)
	in := api.SLA{
		Name:             "gold",
		RespondMins:      30,
		ResolveMins:      240,
		AnchoredAt:       anchored,
		FirstRespondedAt: &responded,
		Escalations:      []api.Escalation{{Channel: api.ChannelResolve, Level: 1, At: anchored}},
	}

	data, err := EncodeValue(in)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	out, err := DecodeValue[api.SLA](data)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if out.FirstRespondedAt == nil || !out.FirstRespondedAt.Equal(responded) {
		t.Fatalf("responded stamp lost: %+v", out)
	}
	if out.ResolvedAt != nil {
		t.Fatalf("unset stamp materialized: %+v", out.ResolvedAt)
	}
	if len(out.Escalations) != 1 || out.Escalations[0].Level != 1 {
		t.Fatalf("escalations mismatch: %+v", out.Escalations)
	}

	wrong, err := DecodeValue[[]string]([]byte{0x01, 0x02})
	if err == nil {
		t.Fatalf("garbage decoded without error: %v", wrong)
	}
}
