package main

import (
	"bytes"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"assistant/pkg/config"
)

// envPassword lets scripted runs skip the interactive password prompt.
const envPassword = "ASSISTANT_PASSWORD"

// resolveAPIKey returns the API key for the configured provider. Environment
// variables win; otherwise the encrypted secrets file is consulted if present.
// Providers without keys (ollama, mock) resolve to an empty string.
func resolveAPIKey(configDir, provider string) (string, error) {
	name := config.SecretNameFor(provider)
	if name == "" {
		return "", nil
	}
	if key := os.Getenv(name); key != "" {
		return key, nil
	}
	if !config.SecretsFileExists(configDir) {
		return "", fmt.Errorf("no API key: set %s or run with -init-secrets", name)
	}

	password := os.Getenv(envPassword)
	if password == "" {
		fmt.Print("Enter password to unlock secrets: ")
		raw, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
		for i := range raw {
			raw[i] = 0
		}
	}

	secrets, err := config.DecryptSecretsFile(configDir, password)
	if err != nil {
		return "", err
	}
	key := config.LookupSecret(name, secrets)
	if key == "" {
		return "", fmt.Errorf("secrets file has no %s: re-run with -init-secrets", name)
	}
	return key, nil
}

// runInitSecrets interactively collects provider API keys and writes the
// encrypted secrets file.
func runInitSecrets(configDir string) error {
	secrets := make(map[string]string)
	for _, name := range []string{config.SecretAnthropicKey, config.SecretOpenAIKey, config.SecretGeminiKey} {
		fmt.Printf("%s (leave blank to skip): ", name)
		value, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if len(value) > 0 {
			secrets[name] = string(value)
		}
		for i := range value {
			value[i] = 0
		}
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no keys entered, nothing to save")
	}

	password, err := promptNewPassword()
	if err != nil {
		return err
	}
	return config.EncryptSecretsFile(configDir, password, secrets)
}

// promptNewPassword prompts for a password with confirmation.
func promptNewPassword() (string, error) {
	maxAttempts := 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Print("Enter a password for the secrets file: ")
		password1, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		fmt.Print("Confirm password: ")
		password2, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		if !bytes.Equal(password1, password2) {
			if attempt < maxAttempts {
				fmt.Println("Passwords do not match. Please try again.")
				continue
			}
			return "", fmt.Errorf("passwords do not match after %d attempts", maxAttempts)
		}

		password := string(password1)
		for i := range password1 {
			password1[i] = 0
		}
		for i := range password2 {
			password2[i] = 0
		}
		return password, nil
	}
	return "", fmt.Errorf("failed to get matching passwords")
}
