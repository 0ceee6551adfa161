package main

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/grinplace/pkg/businesses"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is the initial data set loaded by the seeder
type Fixture struct {
	Roles      []RoleFixture     `yaml:"roles"`
	Users      []UserFixture     `yaml:"users"`
	Businesses []BusinessFixture `yaml:"businesses"`
}

// RoleFixture describes a role. AllPermissions grants the whole vocabulary.
type RoleFixture struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Permissions    []string `yaml:"permissions"`
	AllPermissions bool     `yaml:"allPermissions"`
}

// UserFixture references its role and business by name
type UserFixture struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Business string `yaml:"business"`
}

// BusinessFixture references its owner by email
type BusinessFixture struct {
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description"`
	Owner       string                  `yaml:"owner"`
	Address     businesses.Address      `yaml:"address"`
	Contact     businesses.Contact      `yaml:"contact"`
	Services    []businesses.ServiceTag `yaml:"services"`
	Schedule    businesses.Schedule     `yaml:"schedule"`
}

// LoadFixture reads the fixture at path, or the built-in one when path is empty
func LoadFixture(path string) (*Fixture, error) {
	data := defaultFixture
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture: %w", err)
		}
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture and checks its references
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	roles := make(map[string]bool, len(f.Roles))
	for _, r := range f.Roles {
		if r.Name == "" {
			return nil, fmt.Errorf("fixture role without a name")
		}
		roles[r.Name] = true
	}
	names := make(map[string]bool, len(f.Businesses))
	for _, b := range f.Businesses {
		names[b.Name] = true
	}
	emails := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if !roles[u.Role] {
			return nil, fmt.Errorf("user %s references unknown role %q", u.Email, u.Role)
		}
		if u.Business != "" && !names[u.Business] {
			return nil, fmt.Errorf("user %s references unknown business %q", u.Email, u.Business)
		}
		emails[u.Email] = true
	}
	for _, b := range f.Businesses {
		if b.Owner != "" && !emails[b.Owner] {
			return nil, fmt.Errorf("business %s references unknown owner %q", b.Name, b.Owner)
		}
	}
	return &f, nil
}
