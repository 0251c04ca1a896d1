package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"--modules-path", "manifests"}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "manifests", cfg.ManifestPath)
	assert.Equal(t, "", cfg.PolicyPath)
	assert.Equal(t, 0, cfg.AdminPort)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.SampleInterval)
	assert.InDelta(t, 18.0, cfg.DegradeBelow, 1e-9)
	assert.InDelta(t, 19.5, cfg.RecoverAt, 1e-9)
}

func TestParse_PathSources(t *testing.T) {
	t.Parallel()

	t.Run("positional argument", func(t *testing.T) {
		t.Parallel()
		cfg, shouldExit, err := Parse([]string{"manifests"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, shouldExit)
		assert.Equal(t, "manifests", cfg.ManifestPath)
	})

	t.Run("shorthand flag", func(t *testing.T) {
		t.Parallel()
		cfg, _, err := Parse([]string{"-m", "manifests"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "manifests", cfg.ManifestPath)
	})

	t.Run("long flag wins over positional", func(t *testing.T) {
		t.Parallel()
		cfg, _, err := Parse([]string{"--modules-path", "primary", "fallback"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "primary", cfg.ManifestPath)
	})
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_HelpFlag(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_ValidationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"--bogus"}, "flag provided but not defined"},
		{"bad log format", []string{"--log-format", "xml", "manifests"}, "invalid log-format"},
		{"bad log level", []string{"--log-level", "verbose", "manifests"}, "invalid log-level"},
		{"inverted thresholds", []string{"--degrade-below", "19", "--recover-at", "18", "manifests"}, "must be greater than"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestParse_TuningFlags(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{
		"--policy", "policy.hcl",
		"--admin-port", "8085",
		"--log-format", "text",
		"--log-level", "debug",
		"--interval", "250ms",
		"--degrade-below", "15",
		"--recover-at", "17",
		"--nominal-tps", "30",
		"manifests",
	}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "policy.hcl", cfg.PolicyPath)
	assert.Equal(t, 8085, cfg.AdminPort)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.SampleInterval)
	assert.InDelta(t, 15.0, cfg.DegradeBelow, 1e-9)
	assert.InDelta(t, 17.0, cfg.RecoverAt, 1e-9)
	assert.InDelta(t, 30.0, cfg.NominalTPS, 1e-9)
}
