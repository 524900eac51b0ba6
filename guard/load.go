// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package guard

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPolicy reads a YAML route policy and validates it.
// An empty path returns DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML route policy. Unknown keys are rejected.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse route policy: %w", err)
	}
	if p.DefaultLogin == "" {
		p.DefaultLogin = "/login"
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
