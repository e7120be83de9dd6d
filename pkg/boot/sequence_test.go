package boot

import (
	"errors"
	"testing"
	"time"

	"edge-boot/pkg/genstore"
	"edge-boot/pkg/model"
)

func TestRunStageOrder(t *testing.T) {
	var calls []string
	seq := &Sequencer{
		Install: func() error {
			calls = append(calls, "install")
			return nil
		},
		Await: func(time.Time) genstore.Outcome {
			calls = append(calls, "await")
			return genstore.Outcome{Record: model.GenerationRecord{
				GeneratedAt: time.Now(),
				Users:       []model.UserCredential{{Username: "alice", Secret: "s1"}},
			}}
		},
		Synthesize: func(record model.GenerationRecord) ([]string, error) {
			calls = append(calls, "synthesize")
			if len(record.Users) != 1 {
				t.Fatalf("record not threaded through: %+v", record)
			}
			return []string{"/run/edge-boot/server.conf"}, nil
		},
		Handoff: func(artifacts []string) error {
			calls = append(calls, "handoff")
			if len(artifacts) != 1 || artifacts[0] != "/run/edge-boot/server.conf" {
				t.Fatalf("artifacts not threaded through: %v", artifacts)
			}
			return nil
		},
	}
	if err := seq.Run(time.Now()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"install", "await", "synthesize", "handoff"}
	if len(calls) != len(want) {
		t.Fatalf("got calls %v want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("got calls %v want %v", calls, want)
		}
	}
}

func TestRunInstallFailureShortCircuits(t *testing.T) {
	boom := errors.New("rule rejected")
	var gateCalled, synthCalled bool
	seq := &Sequencer{
		Install: func() error { return boom },
		Await: func(time.Time) genstore.Outcome {
			gateCalled = true
			return genstore.Outcome{}
		},
		Synthesize: func(model.GenerationRecord) ([]string, error) {
			synthCalled = true
			return nil, nil
		},
		Handoff: func([]string) error { return nil },
	}
	err := seq.Run(time.Now())
	if !errors.Is(err, boom) {
		t.Fatalf("expected install failure, got %v", err)
	}
	if gateCalled || synthCalled {
		t.Fatalf("later stages ran after a policy failure: gate=%v synth=%v", gateCalled, synthCalled)
	}
}

func TestRunDegradedOutcomeProceeds(t *testing.T) {
	var synthRecord *model.GenerationRecord
	seq := &Sequencer{
		Install: func() error { return nil },
		Await: func(time.Time) genstore.Outcome {
			return genstore.Outcome{Degraded: true}
		},
		Synthesize: func(record model.GenerationRecord) ([]string, error) {
			synthRecord = &record
			return nil, nil
		},
		Handoff: func([]string) error { return nil },
	}
	if err := seq.Run(time.Now()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if synthRecord == nil {
		t.Fatal("synthesis skipped on degraded outcome")
	}
	if !synthRecord.Empty() {
		t.Fatalf("degraded synthesis must get an empty record: %+v", synthRecord)
	}
}

func TestRunSynthesisFailureSkipsHandoff(t *testing.T) {
	boom := errors.New("unresolved token")
	var handoffCalled bool
	seq := &Sequencer{
		Install: func() error { return nil },
		Await:   func(time.Time) genstore.Outcome { return genstore.Outcome{Degraded: true} },
		Synthesize: func(model.GenerationRecord) ([]string, error) {
			return nil, boom
		},
		Handoff: func([]string) error {
			handoffCalled = true
			return nil
		},
	}
	if err := seq.Run(time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected synthesis failure, got %v", err)
	}
	if handoffCalled {
		t.Fatal("handoff ran after a failed synthesis")
	}
}
