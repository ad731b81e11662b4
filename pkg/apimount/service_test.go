package apimount_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytenisu/api-mount-server/pkg/apimount"
	"github.com/vytenisu/api-mount-server/pkg/codec"
	"github.com/vytenisu/api-mount-server/pkg/transport/httpx"
)

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// newTestFactory wires a factory whose server launches in-process, without a
// listener.
func newTestFactory(t *testing.T, shared apimount.Config) (*apimount.Factory, func() *httpx.Server) {
	t.Helper()
	shared.Name = "test"
	reg := apimount.NewRegistry(nil)
	reg.RegisterLauncher("test", unstartedLauncher(nil))
	f := apimount.NewFactory(shared, apimount.WithRegistry(reg))
	return f, func() *httpx.Server {
		srv, ok := reg.Server("test")
		require.True(t, ok, "server not launched")
		return srv
	}
}

func TestMountPlainMapping(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"foo": func(context.Context, []any) (any, error) { return "foo", nil },
	})))

	rr := post(t, server(), "/foo", `{"args":[]}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"foo"`, rr.Body.String())
	assert.Equal(t, codec.JSON.ContentType(), rr.Header().Get("Content-Type"))
}

func TestMountWithBasePath(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{BasePath: "/api"})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"someMethodName": func(context.Context, []any) (any, error) { return "ok", nil },
	})))

	rr := post(t, server(), "/api/some-method-name", `{}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"ok"`, rr.Body.String())
}

func TestMountClassBased(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{})
	s, err := apimount.FromInstance(ApiImplementation{})
	require.NoError(t, err)
	require.NoError(t, f.MountClassBased(s))

	rr := post(t, server(), "/api-implementation/test", `{"args":[]}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `222`, rr.Body.String())
}

func TestMountClassBasedNeedsTypeIdentity(t *testing.T) {
	shared := apimount.Config{Name: "test"}
	reg := apimount.NewRegistry(nil)
	reg.RegisterLauncher("test", unstartedLauncher(nil))
	f := apimount.NewFactory(shared, apimount.WithRegistry(reg))

	err := f.MountClassBased(apimount.FromMap(map[string]apimount.Handler{
		"foo": func(context.Context, []any) (any, error) { return nil, nil },
	}))
	require.Error(t, err)

	// Nothing was bound or launched.
	_, ok := reg.Server("test")
	assert.False(t, ok)
}

func TestRejectedValueReachesCallerVerbatim(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"causeError": func(context.Context, []any) (any, error) { return nil, apimount.Reject(66) },
	})))

	rr := post(t, server(), "/cause-error", `{"args":[]}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, `66`, rr.Body.String())
}

func TestStructuredErrorShape(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"custom": func(context.Context, []any) (any, error) {
			return nil, apimount.NewError("CustomError", "denied")
		},
		"plain": func(context.Context, []any) (any, error) {
			return nil, errors.New("boom")
		},
	})))

	rr := post(t, server(), "/custom", `{}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var shape struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		Stack   string `json:"stack"`
	}
	require.NoError(t, codec.JSON.Unmarshal(rr.Body.Bytes(), &shape))
	assert.Equal(t, "CustomError", shape.Name)
	assert.Equal(t, "denied", shape.Message)
	assert.NotEmpty(t, shape.Stack)

	rr = post(t, server(), "/plain", `{}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NoError(t, codec.JSON.Unmarshal(rr.Body.Bytes(), &shape))
	assert.Equal(t, "Error", shape.Name)
	assert.Equal(t, "boom", shape.Message)
	assert.NotEmpty(t, shape.Stack)
}

func TestArgumentFidelity(t *testing.T) {
	var got []any
	f, server := newTestFactory(t, apimount.Config{})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"record": func(_ context.Context, args []any) (any, error) {
			got = args
			return nil, nil
		},
	})))

	rr := post(t, server(), "/record", `{"args":[1,"two",true,null]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{float64(1), "two", true, nil}, got)

	// Absent args means empty.
	rr = post(t, server(), "/record", ``)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, got)
}

func TestSharedServerLaunchedOnce(t *testing.T) {
	var launches atomic.Int32
	reg := apimount.NewRegistry(nil)
	// Both mounts use the default name/port and land on one server.
	reg.RegisterLauncher("api-mount-server-3000", unstartedLauncher(&launches))
	f := apimount.NewFactory(apimount.Config{}, apimount.WithRegistry(reg))

	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"one": func(context.Context, []any) (any, error) { return 1, nil },
	})))
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"two": func(context.Context, []any) (any, error) { return 2, nil },
	})))

	assert.Equal(t, int32(1), launches.Load())

	srv, ok := reg.Server("api-mount-server-3000")
	require.True(t, ok)
	assert.Equal(t, `1`, post(t, srv, "/one", `{}`).Body.String())
	assert.Equal(t, `2`, post(t, srv, "/two", `{}`).Body.String())
}

func TestBeforeExecutionShortCircuit(t *testing.T) {
	var handlerCalls atomic.Int32
	f, server := newTestFactory(t, apimount.Config{
		BeforeExecution: func(c *apimount.Call, w http.ResponseWriter, r *http.Request) apimount.HookResult {
			apimount.WriteJSON(w, http.StatusCreated, c.Args[0])
			return apimount.ShortCircuit
		},
	})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"customEndpoint": func(context.Context, []any) (any, error) {
			handlerCalls.Add(1)
			return nil, nil
		},
	})))

	rr := post(t, server(), "/custom-endpoint", `{"args":["custom"]}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, `"custom"`, rr.Body.String())
	assert.Equal(t, int32(0), handlerCalls.Load())
}

func TestBeforeResponseObservesAndContinues(t *testing.T) {
	type record struct {
		response any
		failed   bool
		method   string
	}
	var seen record
	f, server := newTestFactory(t, apimount.Config{
		BeforeResponse: func(c *apimount.Call, w http.ResponseWriter, r *http.Request) apimount.HookResult {
			seen = record{response: c.Response, failed: c.Failed, method: c.Method}
			return apimount.Continue
		},
	})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"someMethod": func(context.Context, []any) (any, error) { return 888, nil },
	})))

	rr := post(t, server(), "/some-method", `{}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `888`, rr.Body.String())
	assert.Equal(t, record{response: 888, failed: false, method: "someMethod"}, seen)
}

func TestBeforeResponseShortCircuitSuppressesDefaultWrite(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{
		BeforeResponse: func(c *apimount.Call, w http.ResponseWriter, r *http.Request) apimount.HookResult {
			apimount.WriteJSON(w, http.StatusTeapot, "hook owns this")
			return apimount.ShortCircuit
		},
	})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"someMethod": func(context.Context, []any) (any, error) { return 888, nil },
	})))

	rr := post(t, server(), "/some-method", `{}`)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, `"hook owns this"`, rr.Body.String())
}

// The after-response stage observes every finished call, including those whose
// response a before-response hook wrote itself.
func TestAfterResponseRunsWhenBeforeResponseShortCircuits(t *testing.T) {
	var observed atomic.Int32
	f, server := newTestFactory(t, apimount.Config{
		BeforeResponse: func(c *apimount.Call, w http.ResponseWriter, r *http.Request) apimount.HookResult {
			apimount.WriteJSON(w, http.StatusTeapot, "owned")
			return apimount.ShortCircuit
		},
		AfterResponse: func(*apimount.Call) apimount.HookResult {
			observed.Add(1)
			return apimount.Observed
		},
	})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"m": func(context.Context, []any) (any, error) { return 1, nil },
	})))

	rr := post(t, server(), "/m", `{}`)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, int32(1), observed.Load())
}

func TestAfterResponseObservesOutcome(t *testing.T) {
	var method string
	var failed bool
	f, server := newTestFactory(t, apimount.Config{
		AfterResponse: func(c *apimount.Call) apimount.HookResult {
			method, failed = c.Method, c.Failed
			return apimount.Observed
		},
	})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"boom": func(context.Context, []any) (any, error) { return nil, errors.New("x") },
	})))

	rr := post(t, server(), "/boom", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "boom", method)
	assert.True(t, failed)
}

func TestCallHookOverridesSharedHook(t *testing.T) {
	var sharedCalls, callCalls atomic.Int32
	f, server := newTestFactory(t, apimount.Config{
		BeforeExecution: func(*apimount.Call, http.ResponseWriter, *http.Request) apimount.HookResult {
			sharedCalls.Add(1)
			return apimount.Continue
		},
	})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"m": func(context.Context, []any) (any, error) { return nil, nil },
	}), apimount.Config{
		BeforeExecution: func(*apimount.Call, http.ResponseWriter, *http.Request) apimount.HookResult {
			callCalls.Add(1)
			return apimount.Continue
		},
	}))

	post(t, server(), "/m", `{}`)
	assert.Equal(t, int32(0), sharedCalls.Load())
	assert.Equal(t, int32(1), callCalls.Load())
}

func TestBeforeListenSeesRawHandle(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{
		BeforeListen: func(srv *httpx.Server) {
			srv.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Access-Control-Allow-Origin", "*")
					next.ServeHTTP(w, r)
				})
			})
		},
	})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"m": func(context.Context, []any) (any, error) { return nil, nil },
	})))

	rr := post(t, server(), "/m", `{}`)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestDuplicatePathRejectedAtBindTime(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{})
	surface := apimount.FromMap(map[string]apimount.Handler{
		"foo": func(context.Context, []any) (any, error) { return "first", nil },
	})
	require.NoError(t, f.Mount(surface))
	require.Error(t, f.Mount(surface))

	// The first binding keeps working.
	rr := post(t, server(), "/foo", `{}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"first"`, rr.Body.String())
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"m": func(context.Context, []any) (any, error) { return nil, nil },
	})))

	rr := post(t, server(), "/m", `{"args":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "SyntaxError")

	// The envelope carries only "args"; anything else is rejected.
	rr = post(t, server(), "/m", `{"args":[],"junk":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(t, server(), "/m", `{"args":[]}{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPanickingHandlerBecomes500(t *testing.T) {
	f, server := newTestFactory(t, apimount.Config{})
	require.NoError(t, f.Mount(apimount.FromMap(map[string]apimount.Handler{
		"m": func(context.Context, []any) (any, error) { panic("kaboom") },
	})))

	rr := post(t, server(), "/m", `{}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var shape struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	require.NoError(t, codec.JSON.Unmarshal(rr.Body.Bytes(), &shape))
	assert.Equal(t, "panic", shape.Name)
	assert.Equal(t, "kaboom", shape.Message)
}
