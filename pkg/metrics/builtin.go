package metrics

// Built-in metric names recorded by the engine.
const (
	HTTPReqs          = "http_reqs"
	HTTPReqDuration   = "http_req_duration"
	HTTPReqFailed     = "http_req_failed"
	Checks            = "checks"
	Iterations        = "iterations"
	IterationDuration = "iteration_duration"
	DataSent          = "data_sent"
	DataReceived      = "data_received"
	VUFaults          = "vu_faults"
)

var builtins = []struct {
	name string
	typ  MetricType
}{
	{HTTPReqs, TypeCounter},
	{HTTPReqDuration, TypeTrend},
	{HTTPReqFailed, TypeRate},
	{Checks, TypeRate},
	{Iterations, TypeCounter},
	{IterationDuration, TypeTrend},
	{DataSent, TypeCounter},
	{DataReceived, TypeCounter},
	{VUFaults, TypeCounter},
}

// RegisterBuiltins creates the engine's metrics up front so thresholds on
// them validate before any sample exists.
func RegisterBuiltins(r *Registry) {
	for _, b := range builtins {
		mustRegister(r, b.name, b.typ)
	}
}

// BuiltinType returns the type of a built-in metric.
func BuiltinType(name string) (MetricType, bool) {
	for _, b := range builtins {
		if b.name == name {
			return b.typ, true
		}
	}
	return "", false
}
