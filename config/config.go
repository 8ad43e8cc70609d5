// Package config loads the forecasting run configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/gdpforecast/autoarima"
	"github.com/sartorproj/gdpforecast/logging"
	"github.com/sartorproj/gdpforecast/transform"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GDPFORECAST_"

var validate = validator.New()

// Search bounds the model grid and the cross-validation scheme.
type Search struct {
	NonseasonalMax int           `yaml:"nonseasonal_max" json:"nonseasonal_max" default:"1" validate:"gte=0,lte=3"`
	SeasonalMax    int           `yaml:"seasonal_max" json:"seasonal_max" default:"2" validate:"gte=0,lte=3"`
	Horizon        int           `yaml:"horizon" json:"horizon" default:"4" validate:"gte=1,lte=24"`
	Frequency      int           `yaml:"frequency" json:"frequency" default:"4" validate:"gte=1,lte=12"`
	CVMinWindow    int           `yaml:"cv_min_window" json:"cv_min_window" default:"20" validate:"gte=2"`
	Workers        int           `yaml:"workers" json:"workers" default:"1" validate:"gte=1"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
}

// Breakpoint configures structural-break trimming.
type Breakpoint struct {
	Trim          float64 `yaml:"trim" json:"trim" default:"0.15" validate:"gt=0,lt=0.5"`
	CriticalValue float64 `yaml:"critical_value" json:"critical_value" default:"8.85" validate:"gt=0"`
	MinShift      float64 `yaml:"min_shift" json:"min_shift" default:"0.25" validate:"gte=0"`
}

// Transform configures the Box-Cox step and break trimming.
type Transform struct {
	// Lambda fixes the Box-Cox parameter; nil estimates it per country.
	Lambda      *float64   `yaml:"lambda" json:"lambda,omitempty"`
	LambdaLower float64    `yaml:"lambda_lower" json:"lambda_lower" default:"-1" validate:"ltfield=LambdaUpper"`
	LambdaUpper float64    `yaml:"lambda_upper" json:"lambda_upper" default:"2"`
	Breakpoint  Breakpoint `yaml:"breakpoint" json:"breakpoint"`
}

// Data describes the input panel.
type Data struct {
	// CanonicalEndYear dates each growth series by back-calculation from
	// this year. Zero keeps the periods carried by the input.
	CanonicalEndYear int `yaml:"canonical_end_year" json:"canonical_end_year" validate:"omitempty,gte=1900,lte=2200"`
}

// Run configures the batch.
type Run struct {
	Workers int `yaml:"workers" json:"workers" default:"1" validate:"gte=1"`
}

// Metrics configures metric export.
type Metrics struct {
	Textfile string `yaml:"textfile" json:"textfile,omitempty"`
}

// Config is the full run configuration.
type Config struct {
	Search    Search         `yaml:"search" json:"search"`
	Transform Transform      `yaml:"transform" json:"transform"`
	Data      Data           `yaml:"data" json:"data"`
	Run       Run            `yaml:"run" json:"run"`
	Logging   logging.Config `yaml:"logging" json:"logging"`
	Metrics   Metrics        `yaml:"metrics" json:"metrics"`
}

// Default returns a configuration holding every default value.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. Keys absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML, or the defaults when path is empty,
// and overrides it with GDPFORECAST_* environment variables.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c = Default()
	} else if c, err = Load(path); err != nil {
		return nil, err
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment override: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"NONSEASONAL_MAX":    &c.Search.NonseasonalMax,
		"SEASONAL_MAX":       &c.Search.SeasonalMax,
		"HORIZON":            &c.Search.Horizon,
		"FREQUENCY":          &c.Search.Frequency,
		"CV_MIN_WINDOW":      &c.Search.CVMinWindow,
		"SEARCH_WORKERS":     &c.Search.Workers,
		"WORKERS":            &c.Run.Workers,
		"CANONICAL_END_YEAR": &c.Data.CanonicalEndYear,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "SEARCH_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSEARCH_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Search.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "LAMBDA"); ok && v != "" {
		l, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%sLAMBDA: %w", EnvPrefix, err)
		}
		c.Transform.Lambda = &l
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok && v != "" {
		c.Logging.Format = v
	}
	if v, ok := lookup(EnvPrefix + "METRICS_TEXTFILE"); ok {
		c.Metrics.Textfile = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if c.Search.Timeout < 0 {
		return fmt.Errorf("search.timeout must not be negative, got %s", c.Search.Timeout)
	}
	if l := c.Transform.Lambda; l != nil && (*l < c.Transform.LambdaLower || *l > c.Transform.LambdaUpper) {
		return fmt.Errorf("transform.lambda %g outside [%g, %g]", *l, c.Transform.LambdaLower, c.Transform.LambdaUpper)
	}
	if c.Search.SeasonalMax > 0 && c.Search.Frequency < 2 {
		return fmt.Errorf("search.seasonal_max %d needs a frequency of at least 2", c.Search.SeasonalMax)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "ltfield":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// SearchConfig converts the search section for autoarima.
func (c *Config) SearchConfig() *autoarima.Config {
	return &autoarima.Config{
		NonseasonalMax: c.Search.NonseasonalMax,
		SeasonalMax:    c.Search.SeasonalMax,
		Period:         c.Search.Frequency,
		Horizon:        c.Search.Horizon,
		MinWindow:      c.Search.CVMinWindow,
		Workers:        c.Search.Workers,
		Timeout:        c.Search.Timeout,
	}
}

// BreakpointOptions converts the breakpoint section for transform.
func (c *Config) BreakpointOptions() transform.BreakpointOptions {
	return transform.BreakpointOptions{
		Trim:          c.Transform.Breakpoint.Trim,
		CriticalValue: c.Transform.Breakpoint.CriticalValue,
		MinShift:      c.Transform.Breakpoint.MinShift,
	}
}
