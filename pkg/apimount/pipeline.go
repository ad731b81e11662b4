// pkg/apimount/pipeline.go
package apimount

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/vytenisu/api-mount-server/pkg/codec"
)

// Call is the ephemeral per-request dispatch context. Created per inbound
// request, threaded through the hooks, never shared across requests.
type Call struct {
	Method  string
	Args    []any
	Surface Surface
	Handler Handler

	// Set after invocation: the normalized outcome. On failure Response holds
	// the wire-shaped failure payload and Err the underlying error.
	Response any
	Failed   bool
	Err      error
}

// dispatch builds the per-route handler running the three-stage pipeline:
// before-execution hook, invocation + outcome normalization, before-response
// hook, default write, after-response hook. Exactly one terminal state per
// call; the handler is invoked at most once.
func (f *Factory) dispatch(m Method, surface Surface, cfg Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		args, err := decodeArgs(r)
		if err != nil {
			WriteJSON(w, http.StatusBadRequest, &APIError{Name: "SyntaxError", Message: err.Error()})
			return
		}
		call := &Call{Method: m.Name, Args: args, Surface: surface, Handler: m.Handler}

		if cfg.BeforeExecution(call, w, r) == ShortCircuit {
			// Hook owns the response (or deliberately produced none).
			return
		}

		res, err := safeInvoke(r.Context(), m.Handler, call.Args)
		if err != nil {
			call.Failed = true
			call.Err = err
			call.Response = failurePayload(err)
		} else {
			call.Response = res
		}

		if cfg.BeforeResponse(call, w, r) != ShortCircuit {
			status := http.StatusOK
			if call.Failed {
				status = http.StatusInternalServerError
			}
			WriteJSON(w, status, call.Response)
		}

		cfg.AfterResponse(call)
	})
}

// decodeArgs pulls the positional arguments out of the {"args": [...]} body.
// An empty body means no arguments. The envelope is decoded strictly: unknown
// top-level keys and trailing content are rejected before the pipeline runs.
func decodeArgs(r *http.Request) ([]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var payload struct {
		Args []any `json:"args"`
	}
	if err := codec.JSONStrict.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload.Args, nil
}

// safeInvoke makes one invocation attempt. Panics become structured failures;
// they never escape the pipeline.
func safeInvoke(ctx context.Context, h Handler, args []any) (res any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &APIError{Name: "panic", Message: fmt.Sprint(p), Stack: string(debug.Stack())}
		}
	}()
	return h(ctx, args)
}

// WriteJSON serializes v as the response body with the given status. Hooks
// that short-circuit can use it to write their own response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := codec.JSON.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"name":"Error","message":"response not serializable","stack":""}`)
	}
	w.Header().Set("Content-Type", codec.JSON.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
