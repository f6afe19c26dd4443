package tool

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result is the outcome of one tool dispatch: exactly one of Success or
// Failure. Consumers switch on the concrete type.
type Result interface{ isResult() }

// Success carries the handler's payload.
type Success struct {
	Payload any
}

func (Success) isResult() {}

// Failure carries a classified, recoverable error.
type Failure struct {
	Kind    Kind
	Message string
}

func (Failure) isResult() {}

// Error renders the failure like a ToolError message.
func (f Failure) Error() string { return fmt.Sprintf("%s: %s", f.Kind, f.Message) }

// ResultOf builds a Result from a handler return pair.
func ResultOf(payload any, err error) Result {
	if err == nil {
		return Success{Payload: payload}
	}
	var te *ToolError
	if errors.As(err, &te) {
		return Failure{Kind: te.Kind, Message: te.Message}
	}
	return Failure{Kind: KindToolExecution, Message: err.Error()}
}

type failureEnvelope struct {
	Error failureBody `json:"error"`
}

type failureBody struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Encode renders r as the content of a tool-role message: the JSON payload on
// success, an {"error":{"kind","message"}} envelope on failure. Payloads that
// cannot be marshaled are reported as a ToolExecutionError envelope.
func Encode(r Result) string {
	switch v := r.(type) {
	case Success:
		b, err := json.Marshal(v.Payload)
		if err != nil {
			return Encode(Failure{Kind: KindToolExecution, Message: fmt.Sprintf("encode result: %v", err)})
		}
		return string(b)
	case Failure:
		b, _ := json.Marshal(failureEnvelope{Error: failureBody(v)})
		return string(b)
	default:
		return "null"
	}
}

// MarshalJSON lets a Success be embedded in exports as its bare payload.
func (s Success) MarshalJSON() ([]byte, error) { return json.Marshal(s.Payload) }

// MarshalJSON lets a Failure be embedded in exports as its error envelope.
func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(failureEnvelope{Error: failureBody(f)})
}
