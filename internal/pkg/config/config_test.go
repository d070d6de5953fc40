package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetenvOrDefault(t *testing.T) {
	t.Setenv("CONFIG_TEST_STRING", "")
	assert.Equal(t, "fallback", GetenvOrDefault("CONFIG_TEST_STRING", "fallback"))

	t.Setenv("CONFIG_TEST_STRING", "set")
	assert.Equal(t, "set", GetenvOrDefault("CONFIG_TEST_STRING", "fallback"))
}

func TestGetenvBoolOrDefault(t *testing.T) {
	os.Unsetenv("CONFIG_TEST_BOOL")
	assert.True(t, GetenvBoolOrDefault("CONFIG_TEST_BOOL", true))

	t.Setenv("CONFIG_TEST_BOOL", "false")
	assert.False(t, GetenvBoolOrDefault("CONFIG_TEST_BOOL", true))

	t.Setenv("CONFIG_TEST_BOOL", "not-a-bool")
	assert.True(t, GetenvBoolOrDefault("CONFIG_TEST_BOOL", true))
}

func TestGetenvIntOrDefault(t *testing.T) {
	os.Unsetenv("CONFIG_TEST_INT")
	assert.EqualValues(t, 42, GetenvIntOrDefault("CONFIG_TEST_INT", 42))

	t.Setenv("CONFIG_TEST_INT", "7")
	assert.EqualValues(t, 7, GetenvIntOrDefault("CONFIG_TEST_INT", 42))

	t.Setenv("CONFIG_TEST_INT", "not-a-number")
	assert.EqualValues(t, 42, GetenvIntOrDefault("CONFIG_TEST_INT", 42))
}

type testConfig struct {
	Name    string `env:"CONFIG_TEST_NAME"`
	Port    int64  `env:"CONFIG_TEST_PORT"`
	Enabled bool   `env:"CONFIG_TEST_ENABLED"`
	Ignored string
}

func TestFromEnvAppliesDefaultsAndOverrides(t *testing.T) {
	os.Unsetenv("CONFIG_TEST_NAME")
	os.Unsetenv("CONFIG_TEST_PORT")
	t.Setenv("CONFIG_TEST_ENABLED", "true")

	cfg := &testConfig{Name: "default-name", Port: 8080, Ignored: "untouched"}

	err := FromEnv(cfg)
	assert.NoError(t, err)
	assert.Equal(t, "default-name", cfg.Name)
	assert.EqualValues(t, 8080, cfg.Port)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "untouched", cfg.Ignored)

	t.Setenv("CONFIG_TEST_NAME", "overridden")
	t.Setenv("CONFIG_TEST_PORT", "9090")

	err = FromEnv(cfg)
	assert.NoError(t, err)
	assert.Equal(t, "overridden", cfg.Name)
	assert.EqualValues(t, 9090, cfg.Port)
}

func TestFromEnvRejectsNonPointer(t *testing.T) {
	err := FromEnv(testConfig{})
	assert.Error(t, err)
}
