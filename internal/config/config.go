// Package config loads tracking tuning parameters and process environment
// configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env contains process-level configuration read from environment variables
// (and a .env file when present). Schema and secrets stay out of the tuning
// file so deployments can rotate them independently.
type Env struct {
	// DBPath is the sqlite database file path (server).
	DBPath string
	// ListenAddr is the HTTP listen address (server).
	ListenAddr string
	// ServerURL is the base URL of the ingestion server (agent).
	ServerURL string
	// SubjectToken authenticates the agent's subject (agent).
	SubjectToken string
	// SubjectID identifies the agent's subject in batch flush items (agent).
	SubjectID string
	// SerialPort is the GPS receiver device path (agent); empty selects the
	// scripted fixture source.
	SerialPort string
	// AuthTokens maps bearer tokens to subject ids (server), parsed from
	// CREWTRACE_AUTH_TOKENS as "token=subject" pairs separated by commas.
	AuthTokens map[string]string
}

// LoadEnv reads configuration from the environment, loading .env first if it
// exists. Only the server requires AuthTokens; the agent requires ServerURL
// and SubjectToken. Callers validate the fields they need.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	env := Env{
		DBPath:       getenvDefault("CREWTRACE_DB", "crewtrace.db"),
		ListenAddr:   getenvDefault("CREWTRACE_LISTEN", ":8080"),
		ServerURL:    os.Getenv("CREWTRACE_SERVER_URL"),
		SubjectToken: os.Getenv("CREWTRACE_SUBJECT_TOKEN"),
		SubjectID:    os.Getenv("CREWTRACE_SUBJECT_ID"),
		SerialPort:   os.Getenv("CREWTRACE_SERIAL_PORT"),
	}

	tokens, err := parseAuthTokens(os.Getenv("CREWTRACE_AUTH_TOKENS"))
	if err != nil {
		return Env{}, err
	}
	env.AuthTokens = tokens

	return env, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseAuthTokens(raw string) (map[string]string, error) {
	tokens := map[string]string{}
	if raw == "" {
		return tokens, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, subject, ok := strings.Cut(pair, "=")
		if !ok || token == "" || subject == "" {
			return nil, fmt.Errorf("invalid auth token entry %q (want token=subject)", pair)
		}
		tokens[token] = subject
	}
	return tokens, nil
}
