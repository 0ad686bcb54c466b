package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultClient   = "4694"
	DefaultAttorney = "EAZ"
	DefaultMaxPages = 3
)

// Rules is the firm-specific part of filing: which defendants belong to
// which client, and how matter subfolders are named.
type Rules struct {
	DefendantClients []DefendantClientRule `yaml:"defendant_clients"`
	DefaultClient    string                `yaml:"default_client"`
	Attorney         string                `yaml:"attorney"`
	Subfolders       map[string]string     `yaml:"subfolders"`
	MaxPages         int                   `yaml:"max_pages"`
}

// DefendantClientRule maps a defendant name fragment to a client number.
// Rules are checked in file order.
type DefendantClientRule struct {
	Match  string `yaml:"match"`
	Client string `yaml:"client"`
}

func DefaultRules() Rules {
	return Rules{
		DefaultClient: DefaultClient,
		Attorney:      DefaultAttorney,
		MaxPages:      DefaultMaxPages,
	}
}

// LoadRules reads a rules file. An empty path yields the defaults.
func LoadRules(path string) (Rules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (Rules, error) {
	rules := DefaultRules()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}

	for i, rule := range rules.DefendantClients {
		if strings.TrimSpace(rule.Match) == "" || strings.TrimSpace(rule.Client) == "" {
			return Rules{}, fmt.Errorf("defendant_clients[%d]: match and client are required", i)
		}
	}
	if strings.TrimSpace(rules.DefaultClient) == "" {
		rules.DefaultClient = DefaultClient
	}
	if strings.TrimSpace(rules.Attorney) == "" {
		rules.Attorney = DefaultAttorney
	}
	if rules.MaxPages <= 0 {
		rules.MaxPages = DefaultMaxPages
	}
	return rules, nil
}
