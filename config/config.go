// Package config resolves runtime configuration values from an ordered list
// of sources. Sources are tried in priority order and the first non-empty
// value wins. A failing source is logged and skipped so that a later source
// can still provide the value.
package config

import (
	"context"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/hexword/verify/secrets"
)

// Source provides one possible value for a configuration item.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Value returns the source's current value, which may be empty.
	Value(ctx context.Context) (string, error)
}

// Resolve returns the value of the first source that yields a non-empty
// value, and the name of that source. When every source is empty or fails,
// Resolve returns empty strings; callers are expected to fail closed.
func Resolve(ctx context.Context, sources ...Source) (string, string) {
	for _, s := range sources {
		v, err := s.Value(ctx)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"source": s.Name()}).Warn("Config source failed; trying next")
			continue
		}
		if v != "" {
			return v, s.Name()
		}
	}
	return "", ""
}

// ParseAudiences splits a comma-separated audience list, trims whitespace and
// drops empty entries. A single bare client id parses as a one-element list.
func ParseAudiences(raw string) []string {
	audiences := []string{}
	for _, a := range strings.Split(raw, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		audiences = append(audiences, a)
	}
	return audiences
}

type staticSource struct {
	name  string
	value string
}

func (s *staticSource) Name() string                              { return s.name }
func (s *staticSource) Value(ctx context.Context) (string, error) { return s.value, nil }

// FlagValue wraps an already-parsed flag value as a Source.
func FlagValue(name, value string) Source {
	return &staticSource{name: "flag:" + name, value: value}
}

type envSource struct {
	key string
}

func (s *envSource) Name() string                              { return "env:" + s.key }
func (s *envSource) Value(ctx context.Context) (string, error) { return os.Getenv(s.key), nil }

// EnvVar reads the named environment variable as a Source.
func EnvVar(key string) Source {
	return &envSource{key: key}
}

type secretSource struct {
	cfg    *secrets.Config
	client secrets.SecretClient
}

func (s *secretSource) Name() string { return "secret:" + s.cfg.Name }

func (s *secretSource) Value(ctx context.Context) (string, error) {
	data, err := s.cfg.LoadLatest(ctx, s.client)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SecretValue reads the newest enabled version of a Secret Manager secret as
// a Source.
func SecretValue(cfg *secrets.Config, client secrets.SecretClient) Source {
	return &secretSource{cfg: cfg, client: client}
}
