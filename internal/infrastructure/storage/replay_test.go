package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"fourad-server/internal/domain"
	"fourad-server/pkg/dice"
)

func sampleSession() *domain.ReplaySession {
	return &domain.ReplaySession{
		SessionID: "3f1c9a2e-0000-4000-8000-000000000001",
		Seed:      42,
		Timestamp: 1760000000,
		Actions: []domain.ReplayAction{
			{Seq: 1, Action: domain.ActionStart, Payload: json.RawMessage(`{"monsters":[{"template":"goblins"}]}`)},
			{Seq: 2, Action: domain.ActionAttack, Payload: json.RawMessage(`{"heroId":"warrior","targetId":"goblins_1"}`)},
			{Seq: 3, Action: domain.ActionFlee, Payload: json.RawMessage{}},
		},
		Rolls: []dice.RollRecord{
			{Kind: dice.KindD6, Label: "count", Values: []int{4}, Total: 4},
			{Kind: dice.KindExplodingD6, Label: "attack", Values: []int{6, 6, 2}, Modifier: 3, Total: 17},
			{Kind: dice.KindExpr, Label: "trap", Modifier: 2, Total: 2, Tags: []string{"2"}},
		},
	}
}

func TestReplay_RoundTrip(t *testing.T) {
	want := sampleSession()

	var buf bytes.Buffer
	if err := writeBinary(&buf, want); err != nil {
		t.Fatalf("writeBinary: %v", err)
	}
	got, err := readBinary(&buf)
	if err != nil {
		t.Fatalf("readBinary: %v", err)
	}

	if got.SessionID != want.SessionID || got.Seed != want.Seed || got.Timestamp != want.Timestamp {
		t.Errorf("header = %q/%d/%d, want %q/%d/%d",
			got.SessionID, got.Seed, got.Timestamp, want.SessionID, want.Seed, want.Timestamp)
	}
	if len(got.Actions) != len(want.Actions) {
		t.Fatalf("actions = %d, want %d", len(got.Actions), len(want.Actions))
	}
	for i := range want.Actions {
		g, w := got.Actions[i], want.Actions[i]
		if g.Seq != w.Seq || g.Action != w.Action || !bytes.Equal(g.Payload, w.Payload) {
			t.Errorf("action %d = %+v, want %+v", i, g, w)
		}
	}
	if !reflect.DeepEqual(got.Rolls, want.Rolls) {
		t.Errorf("rolls = %+v, want %+v", got.Rolls, want.Rolls)
	}
}

func TestReplay_SaveLoad(t *testing.T) {
	svc, err := NewReplayService(t.TempDir())
	if err != nil {
		t.Fatalf("NewReplayService: %v", err)
	}
	want := sampleSession()

	path, err := svc.Save(want)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := svc.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Rolls) != 3 || got.Rolls[1].Total != 17 {
		t.Errorf("rolls = %+v", got.Rolls)
	}
}

func TestReplay_BadHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := writeBinary(&buf, sampleSession()); err != nil {
		t.Fatalf("writeBinary: %v", err)
	}
	raw := buf.Bytes()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 9; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-3] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), raw...))
			if _, err := readBinary(bytes.NewReader(data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	data := append([]byte(nil), raw...)
	data[0] = 'X'
	if _, err := readBinary(bytes.NewReader(data)); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("err = %v, want ErrInvalidMagic", err)
	}
}

func TestMarshalRoll_StableForEmptySlices(t *testing.T) {
	a, err := MarshalRoll(dice.RollRecord{Kind: dice.KindExpr, Label: "x", Values: nil, Tags: nil})
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalRoll(dice.RollRecord{Kind: dice.KindExpr, Label: "x", Values: []int{}, Tags: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("nil and empty slices encode differently: %x vs %x", a, b)
	}
}
