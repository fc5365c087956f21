// Package config holds the build settings and constructs the logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/carve/pkg/errs"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Settings tune one build.
type Settings struct {
	// MaxTerms caps normal-form conversion.
	MaxTerms int `yaml:"max_terms" validate:"gte=1"`
	// SampleDirections is the number of rays per zone sample point.
	SampleDirections int `yaml:"sample_directions" validate:"gte=3,lte=360"`
	// SamplePull places the secondary zone samples toward each link.
	SamplePull float64 `yaml:"sample_pull" validate:"gt=0,lt=1"`
	// Tolerance is the on-surface distance for side tests.
	Tolerance float64 `yaml:"tolerance" validate:"gt=0,lt=1"`
	// FirstSurface and FirstCell are the first ids the allocator grants.
	FirstSurface int `yaml:"first_surface" validate:"gte=1"`
	FirstCell    int `yaml:"first_cell" validate:"gte=1"`
	LogLevel     string `yaml:"log_level" validate:"oneof=panic fatal error warn warning info debug trace"`
}

// Default returns the settings used when no file overrides them.
func Default() Settings {
	return Settings{
		MaxTerms:         4096,
		SampleDirections: 8,
		SamplePull:       0.95,
		Tolerance:        1e-8,
		FirstSurface:     1,
		FirstCell:        1,
		LogLevel:         "info",
	}
}

var validate = validator.New()

// Validate checks every field against its bounds.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, len(ve))
			for i, fe := range ve {
				fields[i] = fmt.Sprintf("%s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
			}
			return errs.Configf("settings", "%s", strings.Join(fields, "; "))
		}
		return errs.Wrap(errs.KindConfiguration, "settings", err)
	}
	return nil
}

// Decode reads YAML settings from r over the defaults and validates the
// result. Unknown keys are refused.
func Decode(r io.Reader) (Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, errs.Wrap(errs.KindConfiguration, "settings", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads settings from path; an empty path gives the defaults.
func Load(path string) (Settings, error) {
	if path == "" {
		s := Default()
		return s, s.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, errs.Wrap(errs.KindConfiguration, "settings", err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// NewLogger returns a text logger writing to out at the named level.
func NewLogger(out io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, "logger", err)
	}
	return &logrus.Logger{
		Out: out,
		Formatter: &logrus.TextFormatter{
			DisableTimestamp: true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: lvl,
	}, nil
}
