// pkg/apimount/config.go
package apimount

import (
	"fmt"
	"net/http"

	"github.com/vytenisu/api-mount-server/pkg/transport/httpx"
)

// DefaultPort is the listen port used when neither the shared nor the
// per-mount configuration sets one.
const DefaultPort = 3000

// defaultNamePrefix + resolved port synthesizes the server name, so mounts
// that share a port land on one server without naming it explicitly.
const defaultNamePrefix = "api-mount-server-"

// HookResult is the explicit outcome of a pipeline hook.
type HookResult int

const (
	// Continue runs the default behavior that follows the hook.
	Continue HookResult = iota
	// ShortCircuit means the hook owned the response; the pipeline skips the
	// stage's default behavior (and, for BeforeExecution, the handler itself).
	ShortCircuit
	// Observed is what an after-response hook reports; the pipeline ignores it.
	Observed
)

// BeforeExecutionHook runs before the handler. ShortCircuit stops the call:
// the handler is never invoked and no default response is written.
type BeforeExecutionHook func(call *Call, w http.ResponseWriter, r *http.Request) HookResult

// BeforeResponseHook runs after the outcome is normalized onto call.
// ShortCircuit suppresses the default response write.
type BeforeResponseHook func(call *Call, w http.ResponseWriter, r *http.Request) HookResult

// AfterResponseHook runs once the response is finalized, for observation only.
type AfterResponseHook func(call *Call) HookResult

// BeforeListenHook receives the raw transport handle right after creation and
// before it accepts connections, e.g. to attach a CORS policy.
type BeforeListenHook func(srv *httpx.Server)

// Config carries one mount's server identity and pipeline hooks. Two exist
// per mount: the factory's shared config and the per-mount override.
type Config struct {
	Name     string
	BasePath string
	Port     int

	BeforeExecution BeforeExecutionHook
	BeforeResponse  BeforeResponseHook
	AfterResponse   AfterResponseHook
	BeforeListen    BeforeListenHook
}

// Resolve merges override over shared over built-in defaults, field by field,
// without mutating either input. Hooks resolve to no-op defaults so their
// absence is not a special case in the pipeline.
func Resolve(shared, override Config) Config {
	out := shared
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.BasePath != "" {
		out.BasePath = override.BasePath
	}
	if override.Port != 0 {
		out.Port = override.Port
	}
	if override.BeforeExecution != nil {
		out.BeforeExecution = override.BeforeExecution
	}
	if override.BeforeResponse != nil {
		out.BeforeResponse = override.BeforeResponse
	}
	if override.AfterResponse != nil {
		out.AfterResponse = override.AfterResponse
	}
	if override.BeforeListen != nil {
		out.BeforeListen = override.BeforeListen
	}

	if out.Port == 0 {
		out.Port = DefaultPort
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("%s%d", defaultNamePrefix, out.Port)
	}
	if out.BeforeExecution == nil {
		out.BeforeExecution = func(*Call, http.ResponseWriter, *http.Request) HookResult { return Continue }
	}
	if out.BeforeResponse == nil {
		out.BeforeResponse = func(*Call, http.ResponseWriter, *http.Request) HookResult { return Continue }
	}
	if out.AfterResponse == nil {
		out.AfterResponse = func(*Call) HookResult { return Observed }
	}
	if out.BeforeListen == nil {
		out.BeforeListen = func(*httpx.Server) {}
	}
	return out
}
