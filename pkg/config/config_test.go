package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/carve/pkg/errs"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestDecodeOverridesDefaults(t *testing.T) {
	s, err := Decode(strings.NewReader("sample_directions: 16\nlog_level: debug\n"))
	require.NoError(t, err)

	want := Default()
	want.SampleDirections = 16
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}

	empty, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), empty)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"too few directions", "sample_directions: 2\n"},
		{"pull of one", "sample_pull: 1\n"},
		{"zero tolerance", "tolerance: 0\n"},
		{"zero first cell", "first_cell: 0\n"},
		{"bad level", "log_level: loud\n"},
		{"unknown key", "max_term: 10\n"},
		{"not yaml", "max_terms: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, errs.ErrConfiguration)
		})
	}
}

func TestLoad(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	path := filepath.Join(t.TempDir(), "carve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_terms: 64\n"), 0o644))
	s, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, s.MaxTerms)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, "warn")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.Level)

	log.Info("hidden")
	log.WithField("component", "bunker").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "component=bunker")

	_, err = NewLogger(&buf, "chatty")
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
