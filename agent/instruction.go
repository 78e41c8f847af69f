package agent

import (
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from run metadata, environment, etc.
type Provider interface {
	Instruction(*core.RunState) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(*core.RunState) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(state *core.RunState) (string, error) { return f(state) }

// Instruction represents either a static instruction string or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*core.RunState) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the final instruction text for one model call. Static and
// provider-produced text both pass through template rendering against the
// run's metadata, so instructions may reference {{.key}} values seeded at
// run start or written by tools.
func (i Instruction) Resolve(state *core.RunState) (string, error) {
	text := i.text

	if i.provider != nil {
		var err error
		if text, err = i.provider.Instruction(state); err != nil {
			return "", err
		}
	}

	if state == nil {
		return text, nil
	}

	return util.RenderTemplate(text, state.Metadata())
}
