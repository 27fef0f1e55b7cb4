package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ProviderMock, cfg.Provider)
	assert.Equal(t, "assistant.db", cfg.DatabasePath)
	assert.Equal(t, 30, cfg.StepTimeoutSecs)
	assert.Equal(t, 9, cfg.WorkdayStartHour)
	assert.Equal(t, 17, cfg.WorkdayEndHour)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := Default()
	want.Provider = ProviderOllama
	want.OllamaHost = "http://localhost:11434"
	want.StepTimeoutSecs = 60
	require.NoError(t, Save(dir, want))

	got, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, got.Provider)
	assert.Equal(t, "http://localhost:11434", got.OllamaHost)
	assert.Equal(t, 60, got.StepTimeoutSecs)
	// Model was empty, so the provider default fills it in.
	assert.Equal(t, ModelOllamaDefault, got.Model)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvProvider, ProviderAnthropic)
	t.Setenv(EnvStepTimeout, "90")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, 90, cfg.StepTimeoutSecs)
	assert.Equal(t, ModelClaudeSonnetLatest, cfg.Model)
}

func TestLoadRejectsUnknownSchemaVersion(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.SchemaVersion = SchemaVersion + 1
	require.NoError(t, Save(dir, cfg))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	bad := Default()
	bad.Provider = "carrier-pigeon"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.StepTimeoutSecs = 0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.WorkdayStartHour = 18
	bad.WorkdayEndHour = 9
	assert.Error(t, bad.Validate())
}

func TestDefaultModelFor(t *testing.T) {
	assert.Equal(t, ModelGPT4o, defaultModelFor(ProviderOpenAI))
	assert.Equal(t, ModelGeminiFlash, defaultModelFor(ProviderGoogle))
	assert.Equal(t, "", defaultModelFor(ProviderMock))
}
