package scenario

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"yqhp/loadtest-engine/pkg/logger"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/dop251/goja"
	"github.com/ohler55/ojg/jp"
	"go.uber.org/zap"
)

const jsCheckTimeout = time.Second

// Check is a compiled boolean assertion over a response.
type Check interface {
	Name() string
	Eval(resp *Response) bool
}

// CompileCheck turns a declarative check into a Check.
func CompileCheck(spec types.CheckSpec) (Check, error) {
	set := 0
	for _, b := range []bool{spec.Status != 0, spec.JSONPath != "", spec.MaxDuration > 0, spec.JS != ""} {
		if b {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w %q: exactly one of status, json_path, max_duration or js must be set", ErrInvalidCheck, spec.Name)
	}

	switch {
	case spec.Status != 0:
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("status is %d", spec.Status)
		}
		return &statusCheck{name: name, want: spec.Status}, nil

	case spec.JSONPath != "":
		expr, err := jp.ParseString(spec.JSONPath)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidCheck, spec.JSONPath, err)
		}
		name := spec.Name
		if name == "" {
			switch {
			case spec.Equals != nil:
				name = fmt.Sprintf("%s == %v", spec.JSONPath, spec.Equals)
			case spec.IsArray:
				name = spec.JSONPath + " is array"
			default:
				name = spec.JSONPath + " exists"
			}
		}
		return &jsonPathCheck{
			name:    name,
			expr:    expr,
			equals:  normalize(spec.Equals),
			isArray: spec.IsArray,
		}, nil

	case spec.MaxDuration > 0:
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("duration < %s", spec.MaxDuration)
		}
		return &durationCheck{name: name, max: spec.MaxDuration}, nil

	default:
		c, err := newJSCheck(spec.Name, spec.JS)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type statusCheck struct {
	name string
	want int
}

func (c *statusCheck) Name() string { return c.name }

func (c *statusCheck) Eval(resp *Response) bool {
	return resp.Err == nil && resp.Status == c.want
}

type jsonPathCheck struct {
	name    string
	expr    jp.Expr
	equals  any
	isArray bool
}

func (c *jsonPathCheck) Name() string { return c.name }

func (c *jsonPathCheck) Eval(resp *Response) bool {
	if resp.Err != nil {
		return false
	}
	data, err := resp.JSON()
	if err != nil {
		return false
	}
	results := c.expr.Get(data)
	if len(results) == 0 {
		return false
	}
	v := results[0]
	switch {
	case c.isArray:
		_, ok := v.([]any)
		return ok
	case c.equals != nil:
		return reflect.DeepEqual(normalize(v), c.equals)
	default:
		return v != nil
	}
}

// normalize maps every numeric type to float64 so YAML ints compare equal to
// decoded JSON numbers.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

type durationCheck struct {
	name string
	max  time.Duration
}

func (c *durationCheck) Name() string { return c.name }

func (c *durationCheck) Eval(resp *Response) bool {
	return resp.Err == nil && resp.Duration < c.max
}

// jsCheck evaluates a JavaScript expression with the response bound to r:
// r.status, r.body, r.json and r.timings.duration (ms). goja runtimes are not
// goroutine safe, so each evaluation borrows one from a pool.
type jsCheck struct {
	name    string
	program *goja.Program
	pool    sync.Pool
}

func newJSCheck(name, src string) (*jsCheck, error) {
	program, err := goja.Compile("check", "("+src+")", true)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidCheck, src, err)
	}
	if name == "" {
		name = src
	}
	c := &jsCheck{name: name, program: program}
	c.pool.New = func() any { return goja.New() }
	return c, nil
}

func (c *jsCheck) Name() string { return c.name }

func (c *jsCheck) Eval(resp *Response) bool {
	if resp.Err != nil {
		return false
	}
	rt := c.pool.Get().(*goja.Runtime)
	defer c.pool.Put(rt)

	var body any
	if data, err := resp.JSON(); err == nil {
		body = data
	}
	_ = rt.Set("r", map[string]any{
		"status": resp.Status,
		"body":   string(resp.Body),
		"json":   body,
		"timings": map[string]any{
			"duration": float64(resp.Duration) / float64(time.Millisecond),
		},
	})

	timer := time.AfterFunc(jsCheckTimeout, func() { rt.Interrupt("check timed out") })
	val, err := rt.RunProgram(c.program)
	timer.Stop()
	rt.ClearInterrupt()
	if err != nil {
		logger.Debug("js check failed", zap.String("check", c.name), zap.Error(err))
		return false
	}
	return val.ToBoolean()
}
