package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekInput struct {
	PositionSeconds float64 `json:"positionSeconds"`
}

func TestDispatchDecodesPayload(t *testing.T) {
	r := New()

	var got seekInput
	var gotType string
	Handle(r, "seek", func(ctx context.Context, in seekInput) error {
		got = in
		gotType = GetMessageTypeFromCtx(ctx)
		return nil
	})

	require.NoError(t, r.Dispatch(context.Background(), []byte(`{"type":"seek","payload":{"positionSeconds":42.5}}`)))
	assert.Equal(t, 42.5, got.PositionSeconds)
	assert.Equal(t, "seek", gotType)
}

func TestDispatchEmptyPayload(t *testing.T) {
	r := New()

	called := false
	Handle(r, "leave", func(_ context.Context, in struct{}) error {
		called = true
		return nil
	})

	require.NoError(t, r.Dispatch(context.Background(), []byte(`{"type":"leave"}`)))
	require.NoError(t, r.Dispatch(context.Background(), []byte(`{"type":"leave","payload":null}`)))
	assert.True(t, called)
}

func TestDispatchErrors(t *testing.T) {
	r := New()
	Handle(r, "seek", func(context.Context, seekInput) error { return nil })

	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "not json", data: `{{`, want: ErrMalformedMessage},
		{name: "missing type", data: `{"payload":{}}`, want: ErrMalformedMessage},
		{name: "bad payload", data: `{"type":"seek","payload":{"positionSeconds":"x"}}`, want: ErrMalformedMessage},
		{name: "unknown", data: `{"type":"dance"}`, want: ErrUnknownMessageType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.Dispatch(context.Background(), []byte(tt.data)), tt.want)
		})
	}
}

func TestMiddlewareOrder(t *testing.T) {
	r := New()

	var trace []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc[json.RawMessage]) HandlerFunc[json.RawMessage] {
			return func(ctx context.Context, payload json.RawMessage) error {
				trace = append(trace, name)
				return next(ctx, payload)
			}
		}
	}
	r.Use(mw("outer"), mw("inner"))

	handlerErr := errors.New("boom")
	Handle(r, "ping", func(context.Context, struct{}) error {
		trace = append(trace, "handler")
		return handlerErr
	})

	err := r.Dispatch(context.Background(), []byte(`{"type":"ping"}`))
	assert.ErrorIs(t, err, handlerErr)
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}
