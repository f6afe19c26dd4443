package tool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/agentloop/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Fixtures --------------------

type flagArgs struct {
	Clause string `json:"clause"`
	Reason string `json:"reason"`
}

func sumTool() *FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}
	return NewFunctionTool("sum", "Add numbers", params, func(_ context.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
}

func flagTool() *FunctionTool {
	return NewTypedTool("flag_for_review", "Flag a clause", func(_ context.Context, in flagArgs) (any, error) {
		return in, nil
	}, WithRole(RoleFlag))
}

// -------------------- Registry Tests --------------------

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(sumTool()))

	err := reg.Register(sumTool())
	assert.ErrorIs(t, err, ErrDuplicateToolName)
	assert.Equal(t, []string{"sum"}, reg.Names())
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() { NewRegistry().MustRegister(sumTool(), sumTool()) })
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry().MustRegister(sumTool())

	got, err := reg.Resolve("sum")
	require.NoError(t, err)
	assert.Equal(t, "sum", got.Name())

	_, err = reg.Resolve("missing")
	assert.ErrorIs(t, err, ErrUnknownTool)
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindUnknownTool, te.Kind)
}

func TestRegistry_CatalogOrderAndShape(t *testing.T) {
	reg := NewRegistry().MustRegister(flagTool(), sumTool())

	catalog := reg.Catalog()
	require.Len(t, catalog, 2)
	assert.Equal(t, "flag_for_review", catalog[0].Function.Name)
	assert.Equal(t, "sum", catalog[1].Function.Name)
	assert.Equal(t, "function", catalog[0].Type)

	props, ok := catalog[0].Function.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "clause")
	assert.Contains(t, props, "reason")
}

func TestRegistry_Invoke(t *testing.T) {
	reg := NewRegistry().MustRegister(sumTool())
	ctx := context.Background()

	got, err := reg.Invoke(ctx, "sum", json.RawMessage(`{"a":2,"b":3}`))
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	_, err = reg.Invoke(ctx, "sum", json.RawMessage(`{"a":2}`))
	assert.ErrorIs(t, err, ErrSchemaViolation)

	_, err = reg.Invoke(ctx, "sum", json.RawMessage(`{"a":"two","b":3}`))
	assert.ErrorIs(t, err, ErrSchemaViolation)

	_, err = reg.Invoke(ctx, "sum", json.RawMessage(`not json`))
	assert.ErrorIs(t, err, ErrSchemaViolation)

	_, err = reg.Invoke(ctx, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistry_InvokeExecutionError(t *testing.T) {
	cause := errors.New("disk on fire")
	failing := NewFunctionTool("read_document", "Read", nil, func(context.Context, map[string]any) (any, error) {
		return nil, cause
	})
	reg := NewRegistry().MustRegister(failing)

	_, err := reg.Invoke(context.Background(), "read_document", nil)
	assert.ErrorIs(t, err, ErrToolExecution)
	assert.ErrorIs(t, err, cause)
}

func TestRegistry_InvokeRecoversPanic(t *testing.T) {
	panicky := NewFunctionTool("panicky", "Panics", nil, func(context.Context, map[string]any) (any, error) {
		panic("kaboom")
	})
	reg := NewRegistry().MustRegister(panicky)

	_, err := reg.Invoke(context.Background(), "panicky", nil)
	require.ErrorIs(t, err, ErrToolExecution)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry().MustRegister(sumTool(), flagTool())
	ctx := context.Background()

	ok := reg.Dispatch(ctx, core.ToolCall{ID: "1", Name: "sum", Arguments: json.RawMessage(`{"a":1,"b":1}`)})
	assert.Equal(t, Success{Payload: 2.0}, ok)

	unknown := reg.Dispatch(ctx, core.ToolCall{ID: "2", Name: "nope"})
	failure, isFailure := unknown.(Failure)
	require.True(t, isFailure)
	assert.Equal(t, KindUnknownTool, failure.Kind)

	flagged := reg.Dispatch(ctx, core.ToolCall{ID: "3", Name: "flag_for_review", Arguments: json.RawMessage(`{"clause":"c","reason":"r"}`)})
	assert.Equal(t, Success{Payload: flagArgs{Clause: "c", Reason: "r"}}, flagged)

	assert.Equal(t, RoleFlag, reg.RoleOf("flag_for_review"))
	assert.Equal(t, RoleDefault, reg.RoleOf("sum"))
	assert.Equal(t, RoleDefault, reg.RoleOf("nope"))
}

func TestRegistry_DispatchUnencodablePayload(t *testing.T) {
	bad := NewFunctionTool("bad", "returns a function", nil,
		func(context.Context, map[string]any) (any, error) { return map[string]any{"f": func() {}}, nil },
		WithRole(RoleFlag))
	reg := NewRegistry().MustRegister(bad)

	res := reg.Dispatch(context.Background(), core.ToolCall{ID: "1", Name: "bad"})
	failure, ok := res.(Failure)
	require.True(t, ok, "got %#v", res)
	assert.Equal(t, KindToolExecution, failure.Kind)
	assert.Contains(t, failure.Message, "encode result")

	_, err := json.Marshal(res)
	assert.NoError(t, err)
	assert.Contains(t, Encode(res), `"kind":"ToolExecutionError"`)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	reg := NewRegistry().MustRegister(sumTool())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := reg.Dispatch(context.Background(), core.ToolCall{ID: "x", Name: "sum", Arguments: json.RawMessage(`{"a":1,"b":2}`)})
			assert.Equal(t, Success{Payload: 3.0}, res)
			assert.Len(t, reg.Catalog(), 1)
		}()
	}
	wg.Wait()
}

// -------------------- Result Tests --------------------

func TestResultOf(t *testing.T) {
	assert.Equal(t, Success{Payload: "ok"}, ResultOf("ok", nil))
	assert.Equal(t, Failure{Kind: KindSchemaViolation, Message: "bad"}, ResultOf(nil, NewToolError("t", KindSchemaViolation, "bad")))
	assert.Equal(t, Failure{Kind: KindToolExecution, Message: "plain"}, ResultOf(nil, errors.New("plain")))
}

func TestEncode(t *testing.T) {
	assert.JSONEq(t, `{"clause":"c","reason":"r"}`, Encode(Success{Payload: flagArgs{Clause: "c", Reason: "r"}}))
	assert.JSONEq(t, `"This clause means: ..."`, Encode(Success{Payload: "This clause means: ..."}))
	assert.JSONEq(t, `{"error":{"kind":"UnknownTool","message":"tool \"x\" is not registered"}}`,
		Encode(Failure{Kind: KindUnknownTool, Message: `tool "x" is not registered`}))

	bad := Encode(Success{Payload: make(chan int)})
	assert.Contains(t, bad, string(KindToolExecution))
}

func TestToolError(t *testing.T) {
	err := NewToolError("read_document", KindToolExecution, "boom")
	assert.Equal(t, "tool error [ToolExecutionError] in read_document: boom", err.Error())
	assert.ErrorIs(t, err, ErrToolExecution)
	assert.NotErrorIs(t, err, ErrUnknownTool)

	wrapped := AsToolError("x", err)
	assert.Same(t, err, wrapped)
}
