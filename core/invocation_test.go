package core

import (
	"context"
	"testing"
)

func TestInvocation_ContextRoundTrip(t *testing.T) {
	if _, ok := InvocationFrom(context.Background()); ok {
		t.Fatal("background context should carry no invocation")
	}

	state := NewRunState("run1", "sess1", "agent1")
	if _, err := state.BeginIteration(); err != nil {
		t.Fatalf("BeginIteration: %v", err)
	}

	call := FunctionCall{ID: "c1", Name: "lookup"}
	inv := NewFunctionInvocation(call, map[string]any{"q": "x"}, "agent1", state)
	if inv.Iteration != 1 {
		t.Errorf("invocation should snapshot the current iteration, got %d", inv.Iteration)
	}

	ctx := WithInvocation(context.Background(), inv)
	got, ok := InvocationFrom(ctx)
	if !ok || got != inv {
		t.Fatal("invocation not retrievable from context")
	}
	if got.State != state {
		t.Error("invocation should share the run state reference")
	}
}

func TestInvocation_Metadata(t *testing.T) {
	inv := NewFunctionInvocation(FunctionCall{ID: "c1", Name: "lookup"}, nil, "agent1", nil)

	if _, ok := inv.Meta("missing"); ok {
		t.Error("missing key should report false")
	}
	inv.SetMeta("attempt", 2)
	if v, ok := inv.Meta("attempt"); !ok || v.(int) != 2 {
		t.Errorf("unexpected metadata value: %v %v", v, ok)
	}
}

func TestRoot_ContextNesting(t *testing.T) {
	if _, ok := RootFrom(context.Background()); ok {
		t.Fatal("background context should carry no root")
	}

	outer := &Root{Agent: "outer", RunID: "run1", Coordinator: NewCoordinator()}
	ctx := WithRoot(context.Background(), outer)

	got, ok := RootFrom(ctx)
	if !ok || got != outer {
		t.Fatal("root not retrievable from context")
	}

	// A nested scope sees its own value; the parent context is untouched.
	inner := &Root{Agent: "inner", RunID: "run2", Coordinator: NewCoordinator()}
	innerCtx := WithRoot(ctx, inner)

	if got, _ := RootFrom(innerCtx); got != inner {
		t.Error("nested scope should see the inner root")
	}
	if got, _ := RootFrom(ctx); got != outer {
		t.Error("outer scope must keep its root after nesting")
	}
}
