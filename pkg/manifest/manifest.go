package manifest

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Manifest describes one organization's catalog, directory and grants.
type Manifest struct {
	Organization string       `yaml:"organization"`
	Permissions  []Permission `yaml:"permissions"`
	Roles        []Role       `yaml:"roles"`
	Departments  []Department `yaml:"departments"`
	Employees    []Employee   `yaml:"employees"`
	Users        []User       `yaml:"users"`
}

// Permission is a catalog entry. Applying it also adds it to the
// organization's allow-list.
type Permission struct {
	ID       string `yaml:"id"`
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Suite    string `yaml:"suite"`
	Category string `yaml:"category"`
}

// Role lists the permissions every holder of the role gets. A nil
// Permissions leaves the role's grants untouched; an empty list clears them.
type Role struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type Department struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	ParentRole  string   `yaml:"parent_role"`
	Permissions []string `yaml:"permissions"`
}

type Employee struct {
	User       string `yaml:"user"`
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
}

// User lists the permissions a user should end up with. Inherited
// permissions left out are stored as denials.
type User struct {
	ID          string   `yaml:"id"`
	Permissions []string `yaml:"permissions"`
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest is empty")
		}
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required fields and duplicate ids.
func (m *Manifest) Validate() error {
	if m.Organization == "" {
		return fmt.Errorf("manifest: organization is required")
	}

	ids := map[string]bool{}
	keys := map[string]bool{}
	for i, p := range m.Permissions {
		if p.ID == "" || p.Key == "" || p.Name == "" {
			return fmt.Errorf("manifest: permissions[%d] needs id, key and name", i)
		}
		if ids[p.ID] {
			return fmt.Errorf("manifest: duplicate permission id %q", p.ID)
		}
		if keys[p.Key] {
			return fmt.Errorf("manifest: duplicate permission key %q", p.Key)
		}
		ids[p.ID] = true
		keys[p.Key] = true
	}

	if err := unique("role", len(m.Roles), func(i int) string { return m.Roles[i].ID }); err != nil {
		return err
	}
	if err := unique("department", len(m.Departments), func(i int) string { return m.Departments[i].ID }); err != nil {
		return err
	}
	if err := unique("employee", len(m.Employees), func(i int) string { return m.Employees[i].User }); err != nil {
		return err
	}
	return unique("user", len(m.Users), func(i int) string { return m.Users[i].ID })
}

func unique(kind string, n int, id func(int) string) error {
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		v := id(i)
		if v == "" {
			return fmt.Errorf("manifest: %s #%d has no id", kind, i+1)
		}
		if seen[v] {
			return fmt.Errorf("manifest: duplicate %s %q", kind, v)
		}
		seen[v] = true
	}
	return nil
}

// Targets counts the roles, departments and users whose grants the manifest
// replaces.
func (m *Manifest) Targets() int {
	n := 0
	for _, r := range m.Roles {
		if r.Permissions != nil {
			n++
		}
	}
	for _, d := range m.Departments {
		if d.Permissions != nil {
			n++
		}
	}
	for _, u := range m.Users {
		if u.Permissions != nil {
			n++
		}
	}
	return n
}

// resolver maps permission references, given as keys or ids, to ids.
// References not declared in the manifest are passed through as ids.
func (m *Manifest) resolver() func([]string) []string {
	byKey := make(map[string]string, len(m.Permissions))
	for _, p := range m.Permissions {
		byKey[p.Key] = p.ID
	}
	return func(refs []string) []string {
		out := make([]string, 0, len(refs))
		for _, ref := range refs {
			if id, ok := byKey[ref]; ok {
				out = append(out, id)
			} else {
				out = append(out, ref)
			}
		}
		return out
	}
}
