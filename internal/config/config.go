package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"yqhp/loadtest-engine/pkg/types"

	"gopkg.in/yaml.v3"
)

// ErrUnknownProfile is returned for a profile name that is not built in.
var ErrUnknownProfile = errors.New("unknown profile")

const (
	DefaultBaseURL        = "http://localhost"
	DefaultRequestTimeout = 10 * time.Second
	DefaultTickInterval   = time.Second
	DefaultHealthPath     = "/health"
)

// DefaultPlan returns the plan every other layer is applied on top of.
func DefaultPlan() *types.TestPlan {
	return &types.TestPlan{
		Name:    "loadtest",
		BaseURL: DefaultBaseURL,
		Tags:    make(map[string]string),
		Options: types.Options{
			ThinkTime:       types.ThinkTime{Min: time.Second, Max: 3 * time.Second},
			RequestTimeout:  DefaultRequestTimeout,
			TickInterval:    DefaultTickInterval,
			TrendPolicy:     "exact",
			MaxConnsPerHost: 1000,
		},
		Setup: types.SetupSpec{
			HealthPath:   DefaultHealthPath,
			ExpectStatus: 200,
			Timeout:      DefaultRequestTimeout,
		},
		Prometheus: types.PrometheusSpec{
			JobName:      "loadtest_engine",
			PushInterval: 10 * time.Second,
		},
	}
}

// Loader assembles a plan from its layers.
type Loader struct {
	planPath string
	profile  string
	stages   []types.Stage
	cmdArgs  map[string]string
	lookup   func(string) (string, bool)
}

// NewLoader creates a loader reading the process environment.
func NewLoader() *Loader {
	return &Loader{
		cmdArgs: make(map[string]string),
		lookup:  os.LookupEnv,
	}
}

// WithPlanPath sets the YAML plan file. Unlike defaults, a missing file is an error.
func (l *Loader) WithPlanPath(path string) *Loader {
	l.planPath = path
	return l
}

// WithProfile selects a built-in profile, taking precedence over a
// profile named in the plan file.
func (l *Loader) WithProfile(name string) *Loader {
	l.profile = name
	return l
}

// WithStages replaces the stage list after every other layer.
func (l *Loader) WithStages(stages []types.Stage) *Loader {
	l.stages = stages
	return l
}

// WithCmdArgs sets overrides keyed by dotted YAML path.
func (l *Loader) WithCmdArgs(args map[string]string) *Loader {
	l.cmdArgs = args
	return l
}

// WithEnvLookup replaces os.LookupEnv, for tests.
func (l *Loader) WithEnvLookup(fn func(string) (string, bool)) *Loader {
	l.lookup = fn
	return l
}

// Load builds the plan without validating it.
func (l *Loader) Load() (*types.TestPlan, error) {
	var data []byte
	if l.planPath != "" {
		var err error
		if data, err = os.ReadFile(l.planPath); err != nil {
			return nil, fmt.Errorf("reading plan file: %w", err)
		}
	}

	profile := l.profile
	if profile == "" && len(data) > 0 {
		var head struct {
			Profile string `yaml:"profile"`
		}
		if err := yaml.Unmarshal(data, &head); err != nil {
			return nil, fmt.Errorf("parsing plan file: %w", err)
		}
		profile = head.Profile
	}

	plan := DefaultPlan()
	if profile != "" {
		p, err := Profile(profile)
		if err != nil {
			return nil, err
		}
		plan = p
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, plan); err != nil {
			return nil, fmt.Errorf("parsing plan file: %w", err)
		}
	}
	plan.Profile = profile

	if err := l.applyEnvToStruct(reflect.ValueOf(plan).Elem()); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	for key, value := range l.cmdArgs {
		if err := setPlanValue(plan, key, value); err != nil {
			return nil, fmt.Errorf("applying override %s: %w", key, err)
		}
	}
	if len(l.stages) > 0 {
		plan.Stages = append([]types.Stage(nil), l.stages...)
	}

	return plan, nil
}

// LoadAndValidate loads and validates in one step.
func (l *Loader) LoadAndValidate() (*types.TestPlan, error) {
	plan, err := l.Load()
	if err != nil {
		return nil, err
	}
	if err := NewValidator().Validate(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// LoadPlan reads and validates a plan file with environment overrides.
func LoadPlan(path string) (*types.TestPlan, error) {
	return NewLoader().WithPlanPath(path).LoadAndValidate()
}

func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue, ok := l.lookup(envTag)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("setting %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

func setPlanValue(plan *types.TestPlan, path, value string) error {
	parts := strings.Split(path, ".")
	v := reflect.ValueOf(plan).Elem()

	for i, part := range parts {
		field, ok := fieldByYAMLName(v, part)
		if !ok {
			return fmt.Errorf("unknown plan path %q", path)
		}

		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("%s is a %s, not a section", part, field.Kind())
		}
		v = field
	}

	return nil
}

func fieldByYAMLName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if tag == name || strings.EqualFold(t.Field(i).Name, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Map:
		if field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported map type %s", field.Type())
		}
		if field.IsNil() {
			field.Set(reflect.MakeMap(field.Type()))
		}
		for _, pair := range strings.Split(value, ",") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) == 2 {
				field.SetMapIndex(reflect.ValueOf(strings.TrimSpace(kv[0])), reflect.ValueOf(strings.TrimSpace(kv[1])))
			}
		}

	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}

	return nil
}
