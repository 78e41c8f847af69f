package agent

import (
	"errors"
	"testing"

	"github.com/hupe1980/agentloop/core"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(*core.RunState) (string, error) { return m.text, m.err }

func newInstructionState(optFns ...func(o *core.RunStateOptions)) *core.RunState {
	return core.NewRunState("run-1", "sess-1", "TestAgent", optFns...)
}

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("You are a helpful assistant.")

	if !inst.IsStatic() {
		t.Fatal("expected static instruction")
	}

	got, err := inst.Resolve(newInstructionState())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "You are a helpful assistant." {
		t.Errorf("unexpected instruction: %q", got)
	}
}

func TestInstruction_FromProvider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "from provider"})

	if inst.IsStatic() {
		t.Fatal("expected dynamic instruction")
	}

	got, err := inst.Resolve(newInstructionState())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "from provider" {
		t.Errorf("unexpected instruction: %q", got)
	}
}

func TestInstruction_FromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(state *core.RunState) (string, error) {
		return "for " + state.Agent(), nil
	})

	got, err := inst.Resolve(newInstructionState())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "for TestAgent" {
		t.Errorf("unexpected instruction: %q", got)
	}
}

func TestInstruction_ProviderErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	inst := NewInstructionFromProvider(mockProvider{err: wantErr})

	_, err := inst.Resolve(newInstructionState())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got: %v", err)
	}
}

func TestInstruction_TemplateRendersRunMetadata(t *testing.T) {
	state := newInstructionState(func(o *core.RunStateOptions) {
		o.Metadata = map[string]any{"persona": "pirate"}
	})

	inst := NewInstructionFromText("Answer as a {{.persona}}.")

	got, err := inst.Resolve(state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Answer as a pirate." {
		t.Errorf("unexpected instruction: %q", got)
	}
}

func TestInstruction_TemplateParseErrorSurfaces(t *testing.T) {
	inst := NewInstructionFromText("Answer as a {{.persona")

	if _, err := inst.Resolve(newInstructionState()); err == nil {
		t.Fatal("expected template error")
	}
}

func TestInstruction_NilStateSkipsRendering(t *testing.T) {
	inst := NewInstructionFromText("Keep {{.marker}} literal.")

	got, err := inst.Resolve(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Keep {{.marker}} literal." {
		t.Errorf("unexpected instruction: %q", got)
	}
}
