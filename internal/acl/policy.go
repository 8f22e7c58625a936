// Package acl maps (role set, resource path, HTTP verb) to an allow/deny
// decision. Rules are declarative JSON files loaded once at process start;
// the resulting Policy is immutable, so role changes on a user take effect on
// the next request without touching this table.
package acl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type roleFile struct {
	Role   string `json:"role"`
	Allows []struct {
		Path    string   `json:"path"`
		Methods []string `json:"methods"`
	} `json:"allows"`
}

type rule struct {
	path    string
	methods map[string]struct{}
	any     bool
}

// Policy is the process-lifetime role -> rules table.
type Policy struct {
	rules map[string][]rule
}

// LoadDir builds a Policy from every *.json role file in dir.
func LoadDir(dir string) (*Policy, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("acl: no role files found in %s", dir)
	}

	policy := &Policy{rules: make(map[string][]rule)}
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("acl: read %s: %w", path, err)
		}
		var rf roleFile
		if err := json.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("acl: parse %s: %w", path, err)
		}
		if err := policy.add(rf); err != nil {
			return nil, fmt.Errorf("acl: %s: %w", path, err)
		}
	}
	return policy, nil
}

// Load builds a Policy from in-memory role definitions (used by tests and by
// collaborators embedding their own rule source).
func Load(definitions []byte) (*Policy, error) {
	var files []roleFile
	if err := json.Unmarshal(definitions, &files); err != nil {
		return nil, fmt.Errorf("acl: parse definitions: %w", err)
	}
	policy := &Policy{rules: make(map[string][]rule)}
	for _, rf := range files {
		if err := policy.add(rf); err != nil {
			return nil, err
		}
	}
	return policy, nil
}

func (p *Policy) add(rf roleFile) error {
	role := strings.ToLower(strings.TrimSpace(rf.Role))
	if role == "" {
		return fmt.Errorf("role name is required")
	}
	for _, allow := range rf.Allows {
		r := rule{
			path:    normalizePath(allow.Path),
			methods: make(map[string]struct{}, len(allow.Methods)),
		}
		if r.path == "" {
			return fmt.Errorf("role %s: rule path is required", role)
		}
		for _, m := range allow.Methods {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m == "*" {
				r.any = true
				continue
			}
			if m != "" {
				r.methods[m] = struct{}{}
			}
		}
		p.rules[role] = append(p.rules[role], r)
	}
	return nil
}

// IsAllowed reports whether any role in the set grants verb on path. The
// check is an OR across roles, never an AND.
func (p *Policy) IsAllowed(roles []string, path, verb string) bool {
	path = normalizePath(path)
	verb = strings.ToUpper(strings.TrimSpace(verb))
	for _, role := range roles {
		for _, r := range p.rules[strings.ToLower(strings.TrimSpace(role))] {
			if !r.matchesPath(path) {
				continue
			}
			if r.any {
				return true
			}
			if _, ok := r.methods[verb]; ok {
				return true
			}
		}
	}
	return false
}

// Roles lists the role names the policy knows about.
func (p *Policy) Roles() []string {
	names := make([]string, 0, len(p.rules))
	for role := range p.rules {
		names = append(names, role)
	}
	return names
}

func (r rule) matchesPath(path string) bool {
	if r.path == "*" || r.path == "/" {
		return true
	}
	return path == r.path || strings.HasPrefix(path, r.path+"/")
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "*" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
