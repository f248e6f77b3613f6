package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate points the config search path at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Prompt:       DefaultPrompt,
		PollInterval: DefaultPollInterval,
		JobControl:   true,
		Color:        DefaultColor,
	}, cfg)
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "shell.yaml")
	writeConfig(t, path, "prompt: \"$ \"\npoll_interval: 50ms\njob_control: false\ncolor: never\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "$ ", cfg.Prompt)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.False(t, cfg.JobControl)
	assert.Equal(t, "never", cfg.Color)
	assert.Equal(t, path, cfg.ConfigPath)
}

func TestLoadSearchesConfigDir(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, AppDirName, "config.yaml")
	writeConfig(t, path, "color: always\n")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "always", cfg.Color)
	assert.Equal(t, path, cfg.ConfigPath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "shell.yaml")
	writeConfig(t, path, "prompt: file\n")
	t.Setenv("JOBSHELL_PROMPT", "env> ")
	t.Setenv("JOBSHELL_POLL_INTERVAL", "25ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env> ", cfg.Prompt)
	assert.Equal(t, 25*time.Millisecond, cfg.PollInterval)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(dir, "bad.yaml")
	writeConfig(t, bad, "prompt: [unclosed\n")
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{Prompt: "> ", PollInterval: 10 * time.Millisecond, Color: "auto"}

	cases := map[string]struct {
		mutate func(*Config)
		field  string
	}{
		"empty prompt":  {func(c *Config) { c.Prompt = "" }, "prompt"},
		"fast poll":     {func(c *Config) { c.PollInterval = time.Microsecond }, "poll_interval"},
		"slow poll":     {func(c *Config) { c.PollInterval = 2 * time.Second }, "poll_interval"},
		"unknown color": {func(c *Config) { c.Color = "sometimes" }, "color"},
	}

	require.NoError(t, valid.Validate())
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)

			err := cfg.Validate()
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field())
		})
	}
}

func TestMarshalYAML(t *testing.T) {
	cfg := Config{Prompt: "> ", PollInterval: 10 * time.Millisecond, JobControl: true, Color: "auto"}

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	assert.Equal(t, "prompt: \"> \"\npoll_interval: 10ms\njob_control: true\ncolor: auto\n", string(out))
}
