package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	secrets := map[string]string{
		SecretAnthropicKey: "sk-ant-test",
		SecretOpenAIKey:    "sk-test",
	}

	require.NoError(t, EncryptSecretsFile(dir, "correct horse", secrets))
	assert.True(t, SecretsFileExists(dir))

	got, err := DecryptSecretsFile(dir, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, secrets, got)
}

func TestSecretsWrongPassword(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptSecretsFile(dir, "right", map[string]string{"K": "v"}))

	_, err := DecryptSecretsFile(dir, "wrong")
	assert.Error(t, err)
}

func TestSecretsFilePermissions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptSecretsFile(dir, "pw", map[string]string{"K": "v"}))

	info, err := os.Stat(filepath.Join(dir, secretsFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSecretsCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, secretsFileName)
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := DecryptSecretsFile(dir, "pw")
	assert.Error(t, err)
}

func TestLookupSecretPrecedence(t *testing.T) {
	secrets := map[string]string{SecretOpenAIKey: "from-file"}

	assert.Equal(t, "from-file", LookupSecret(SecretOpenAIKey, secrets))

	t.Setenv(SecretOpenAIKey, "from-env")
	assert.Equal(t, "from-env", LookupSecret(SecretOpenAIKey, secrets))

	assert.Equal(t, "", LookupSecret("", secrets))
}

func TestSecretNameFor(t *testing.T) {
	assert.Equal(t, SecretAnthropicKey, SecretNameFor(ProviderAnthropic))
	assert.Equal(t, SecretGeminiKey, SecretNameFor(ProviderGoogle))
	assert.Equal(t, "", SecretNameFor(ProviderOllama))
	assert.Equal(t, "", SecretNameFor(ProviderMock))
}
