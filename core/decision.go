package core

// DecisionKind labels the action the loop takes next.
type DecisionKind string

const (
	DecideCallModel    DecisionKind = "call_model"    // Perform one model turn
	DecideExecuteTools DecisionKind = "execute_tools" // Run the pending tool calls
	DecideTerminate    DecisionKind = "terminate"     // End the run
)

// Decision is the pure data outcome of one decision step. Calls is populated
// only for DecideExecuteTools (preserving the model's requested order);
// Reason only for DecideTerminate.
type Decision struct {
	Kind   DecisionKind
	Calls  []FunctionCall
	Reason TerminationReason
}

// CallModel decides to perform the next model turn.
func CallModel() Decision {
	return Decision{Kind: DecideCallModel}
}

// ExecuteTools decides to run the given tool calls in order.
func ExecuteTools(calls []FunctionCall) Decision {
	return Decision{Kind: DecideExecuteTools, Calls: calls}
}

// Terminate decides to end the run with the given reason.
func Terminate(reason TerminationReason) Decision {
	return Decision{Kind: DecideTerminate, Reason: reason}
}
