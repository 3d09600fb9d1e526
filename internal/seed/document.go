// Package seed loads the access model (permissions, roles and initial users)
// from YAML and applies it idempotently.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllPermissions in a role's permission list expands to every declared
// permission.
const AllPermissions = "*"

//go:embed default.yaml
var defaultDocument []byte

// Document is the seed file layout.
type Document struct {
	Permissions []string `yaml:"permissions"`
	Roles       []Role   `yaml:"roles"`
	Users       []User   `yaml:"users"`
}

type Role struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type User struct {
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

// Default returns the embedded document.
func Default() (*Document, error) {
	return Parse(defaultDocument)
}

// Load reads and validates a seed file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a seed document.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed document: %w", err)
	}
	return doc, nil
}

// Validate checks that every reference resolves inside the document.
func (d *Document) Validate() error {
	var errs []error

	perms := make(map[string]struct{}, len(d.Permissions))
	for _, p := range d.Permissions {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, errors.New("empty permission name"))
			continue
		}
		perms[p] = struct{}{}
	}

	roles := make(map[string]struct{}, len(d.Roles))
	for _, r := range d.Roles {
		if strings.TrimSpace(r.Name) == "" {
			errs = append(errs, errors.New("empty role name"))
			continue
		}
		if _, dup := roles[r.Name]; dup {
			errs = append(errs, fmt.Errorf("role %q declared twice", r.Name))
		}
		roles[r.Name] = struct{}{}
		for _, p := range r.Permissions {
			if p == AllPermissions {
				continue
			}
			if _, ok := perms[p]; !ok {
				errs = append(errs, fmt.Errorf("role %q references undeclared permission %q", r.Name, p))
			}
		}
	}

	for _, u := range d.Users {
		if strings.TrimSpace(u.Email) == "" {
			errs = append(errs, errors.New("user without email"))
			continue
		}
		if u.Password == "" {
			errs = append(errs, fmt.Errorf("user %q has no password", u.Email))
		}
		for _, r := range u.Roles {
			if _, ok := roles[r]; !ok {
				errs = append(errs, fmt.Errorf("user %q references undeclared role %q", u.Email, r))
			}
		}
	}

	return errors.Join(errs...)
}

// RolePermissions returns the permissions of role with AllPermissions
// expanded.
func (d *Document) RolePermissions(role Role) []string {
	for _, p := range role.Permissions {
		if p == AllPermissions {
			return append([]string(nil), d.Permissions...)
		}
	}
	return role.Permissions
}
