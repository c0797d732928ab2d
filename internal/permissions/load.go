package permissions

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/primaai/agent-gateway/pkg/models"
)

// fileFormat is the on-disk shape of a permissions override:
//
//	roles:
//	  admin: [search_venues, check_availability]
//	  guest: [search_venues]
type fileFormat struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadFile reads a YAML permissions table. Every role must be a known role
// and every operation one of known.
func LoadFile(path string, known []string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions file: %w", err)
	}
	return Parse(raw, known)
}

// Parse decodes a YAML permissions table. See LoadFile.
func Parse(raw []byte, known []string) (*Table, error) {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse permissions: %w", err)
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("parse permissions: no roles defined")
	}

	knownOps := make(map[string]bool, len(known))
	for _, k := range known {
		knownOps[k] = true
	}

	names := make([]string, 0, len(f.Roles))
	for name := range f.Roles {
		names = append(names, name)
	}
	sort.Strings(names)

	roles := make(map[models.Role][]string, len(f.Roles))
	for _, name := range names {
		role, ok := models.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("parse permissions: unknown role %q", name)
		}
		for _, op := range f.Roles[name] {
			if !knownOps[op] {
				return nil, fmt.Errorf("parse permissions: role %q lists unknown operation %q", name, op)
			}
		}
		roles[role] = f.Roles[name]
	}
	return New(roles), nil
}
