package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"gopkg.in/yaml.v3"
)

func TestNewOption(t *testing.T) {
	fields := map[string]any{"enabled": true, "level": 2}
	opt := domain.NewOption(fields)

	assert.Equal(t, map[string]any{"level": 2}, opt.Fields)
	assert.Equal(t, map[string]any{"enabled": true, "level": 2}, opt.Map())

	fields["level"] = 3
	assert.Equal(t, 2, opt.Int("level", 0), "fields are copied")
}

func TestOption_Accessors(t *testing.T) {
	opt := domain.NewOption(map[string]any{
		"shell":    "/bin/bash",
		"strict":   false,
		"length":   12,
		"debounce": float64(250),
		"ratio":    1.5,
		"keep":     []any{"robots.txt", 3, "*.map"},
		"globs":    []string{"*.js"},
	})

	assert.Equal(t, "/bin/bash", opt.String("shell", "/bin/sh"))
	assert.Equal(t, "/bin/sh", opt.String("missing", "/bin/sh"))
	assert.Equal(t, "x", opt.String("length", "x"), "wrong type falls back")

	assert.False(t, opt.Bool("strict", true))
	assert.True(t, opt.Bool("missing", true))

	assert.Equal(t, 12, opt.Int("length", 8))
	assert.Equal(t, 250, opt.Int("debounce", 200))
	assert.Equal(t, 7, opt.Int("ratio", 7), "fractional numbers fall back")
	assert.Equal(t, 8, opt.Int("shell", 8))

	assert.Equal(t, []string{"robots.txt", "*.map"}, opt.Strings("keep"))
	assert.Equal(t, []string{"*.js"}, opt.Strings("globs"))
	assert.Nil(t, opt.Strings("missing"))
}

func TestOption_Marshal(t *testing.T) {
	opts := domain.Options{"minify": domain.NewOption(map[string]any{"level": 1})}

	data, err := json.Marshal(opts)
	require.NoError(t, err)
	assert.JSONEq(t, `{"minify": {"enabled": true, "level": 1}}`, string(data))

	out, err := yaml.Marshal(opts)
	require.NoError(t, err)
	assert.YAMLEq(t, "minify:\n  enabled: true\n  level: 1\n", string(out))
}

func TestOptions(t *testing.T) {
	opts := domain.Options{
		"sourcemap": domain.NewOption(nil),
		"clean":     domain.NewOption(map[string]any{"keep": []any{}}),
	}

	assert.True(t, opts.Enabled("clean"))
	assert.False(t, opts.Enabled("minify"))

	_, ok := opts.Get("minify")
	assert.False(t, ok)
	clean, ok := opts.Get("clean")
	require.True(t, ok)
	assert.Empty(t, clean.Strings("keep"))

	assert.Equal(t, []string{"clean", "sourcemap"}, opts.Names())
}
