package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when present.
const DefaultEnvFile = ".env"

// Credentials are the secrets the adapters need. They are only ever read
// from the process environment or a dotenv file, never from the YAML config.
type Credentials struct {
	OpenWeatherAPIKey string `env:"OPENWEATHER_API_KEY" yaml:"openweather_api_key"`
	MotionAPIKey      string `env:"MOTION_API_KEY" yaml:"motion_api_key"`
	GarminToken       string `env:"GARMIN_TOKEN" yaml:"garmin_token"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY" yaml:"openai_api_key"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY" yaml:"gemini_api_key"`
	SendGridAPIKey    string `env:"SENDGRID_API_KEY" yaml:"sendgrid_api_key"`
}

// LLMKey returns the key for provider.
func (c Credentials) LLMKey(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		return c.GeminiAPIKey
	case "openai", "":
		return c.OpenAIAPIKey
	default:
		return ""
	}
}

// Redacted returns a copy safe to print.
func (c Credentials) Redacted() Credentials {
	return Credentials{
		OpenWeatherAPIKey: redact(c.OpenWeatherAPIKey),
		MotionAPIKey:      redact(c.MotionAPIKey),
		GarminToken:       redact(c.GarminToken),
		OpenAIAPIKey:      redact(c.OpenAIAPIKey),
		GeminiAPIKey:      redact(c.GeminiAPIKey),
		SendGridAPIKey:    redact(c.SendGridAPIKey),
	}
}

// LoadCredentials reads envFile (when it exists) and the process
// environment. Process variables win over the file. An explicitly named
// file that does not exist is an error; the default one is optional.
func LoadCredentials(envFile string) (Credentials, string, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}

	values, err := godotenv.Read(envFile)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		values, envFile = map[string]string{}, ""
	default:
		return Credentials{}, "", fmt.Errorf("read env file %s: %w", envFile, err)
	}

	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			values[key] = value
		}
	}
	creds, err := ParseCredentials(values)
	return creds, envFile, err
}

// ParseCredentials decodes credentials from an explicit variable set.
func ParseCredentials(environment map[string]string) (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds, env.Options{Environment: environment}); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****"
}
