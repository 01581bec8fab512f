package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DependencyRef is the canonical form of a dependency entry. Manifests may
// write "name", "ns/name", "ns/name@1.2.0", or {"name","registry","version"}.
type DependencyRef struct {
	Namespace string `json:"registry,omitempty" yaml:"registry,omitempty"`
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
}

// IsQualified reports whether the reference names its namespace.
func (d DependencyRef) IsQualified() bool { return d.Namespace != "" }

// Qualified returns the reference's qualified name, using defaultNamespace
// for bare references.
func (d DependencyRef) Qualified(defaultNamespace string) QualifiedName {
	ns := d.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	return QualifiedName{Namespace: ns, Name: d.Name}
}

func (d DependencyRef) String() string {
	s := d.Name
	if d.Namespace != "" {
		s = d.Namespace + "/" + s
	}
	if d.Version != "" {
		s += "@" + d.Version
	}
	return s
}

// ParseDependency parses the shorthand string form.
func ParseDependency(s string) (DependencyRef, error) {
	ref, version, err := SplitVersion(s)
	if err != nil {
		return DependencyRef{}, err
	}
	if !strings.Contains(ref, Separator) {
		if err := validateSegment("component", ref); err != nil {
			return DependencyRef{}, err
		}
		return DependencyRef{Name: ref, Version: version}, nil
	}
	q, err := ParseQualified(ref)
	if err != nil {
		return DependencyRef{}, err
	}
	return DependencyRef{Namespace: q.Namespace, Name: q.Name, Version: version}, nil
}

func (d *DependencyRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		ref, err := ParseDependency(s)
		if err != nil {
			return err
		}
		*d = ref
		return nil
	}

	var obj struct {
		Name     string `json:"name"`
		Registry string `json:"registry"`
		Version  string `json:"version"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("dependency must be a string or object: %w", err)
	}
	// An object may still carry "ns/name" in its name field.
	ref, err := ParseDependency(obj.Name)
	if err != nil {
		return err
	}
	if obj.Registry != "" {
		if ref.Namespace != "" && ref.Namespace != obj.Registry {
			return fmt.Errorf("dependency %q conflicts with registry %q", obj.Name, obj.Registry)
		}
		ref.Namespace = obj.Registry
	}
	if obj.Version != "" {
		ref.Version = obj.Version
	}
	*d = ref
	return nil
}

func (f *FileEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			return fmt.Errorf("file entry is empty")
		}
		*f = FileEntry{Source: s, Target: s}
		return nil
	}

	type plain FileEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("file entry must be a string or object: %w", err)
	}
	if p.Source == "" {
		return fmt.Errorf("file entry missing path")
	}
	if p.Target == "" {
		p.Target = p.Source
	}
	*f = FileEntry(p)
	return nil
}

func (m *McpServer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = McpServer{Type: "remote", URL: s}
		return nil
	}

	type plain McpServer
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("mcp server must be a URL string or object: %w", err)
	}
	if p.Type == "" {
		if p.URL != "" {
			p.Type = "remote"
		} else {
			p.Type = "local"
		}
	}
	*m = McpServer(p)
	return nil
}
