package hostconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/compkg/internal/errs"
	"github.com/agentx-labs/compkg/internal/logging"
	"github.com/agentx-labs/compkg/internal/platform"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

// Merger writes an Aggregate into a project's host configuration files.
type Merger struct {
	// HostFile is the host config path relative to the project directory.
	HostFile string
	// PackageDir holds package.json, relative to the project directory.
	PackageDir string

	logger *zap.Logger
}

// NewMerger returns a Merger for the given project-relative locations.
func NewMerger(hostFile, packageDir string, logger *zap.Logger) *Merger {
	return &Merger{HostFile: hostFile, PackageDir: packageDir, logger: logging.OrNop(logger)}
}

// Apply merges agg into the host config and package.json under projectDir.
// Files are only touched when agg contributes to them. It returns the
// project-relative paths written.
func (m *Merger) Apply(projectDir string, agg Aggregate) ([]string, error) {
	var written []string

	frag, err := agg.HostFragment()
	if err != nil {
		return nil, fmt.Errorf("rendering host config: %w", err)
	}
	if len(frag) > 0 {
		path := filepath.Join(projectDir, m.HostFile)
		if err := mergeFile(path, frag); err != nil {
			return nil, err
		}
		m.logger.Debug("merged host config", zap.String("path", path), zap.Int("keys", len(frag)))
		written = append(written, m.HostFile)
	}

	if len(agg.NpmDependencies) > 0 || len(agg.NpmDevDependencies) > 0 {
		rel := filepath.Join(m.PackageDir, "package.json")
		if err := mergePackageJSON(filepath.Join(projectDir, rel), agg.NpmDependencies, agg.NpmDevDependencies); err != nil {
			return nil, err
		}
		written = append(written, rel)
	}
	return written, nil
}

// ReadObject reads a JSON or JSON-with-comments object. A missing or empty
// file reads as an empty object.
func ReadObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return map[string]any{}, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &obj); err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "parsing %s", path)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

func writeObject(path string, obj map[string]any) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return platform.WriteFileAtomic(path, append(data, '\n'), 0644)
}

func mergeFile(path string, frag map[string]any) error {
	existing, err := ReadObject(path)
	if err != nil {
		return err
	}
	return writeObject(path, MergeObjects(existing, frag))
}

func mergePackageJSON(path string, deps, devDeps []string) error {
	pkg, err := ReadObject(path)
	if err != nil {
		return err
	}
	if _, ok := pkg["name"]; !ok {
		pkg["name"] = filepath.Base(filepath.Dir(path))
	}
	if _, ok := pkg["private"]; !ok {
		pkg["private"] = true
	}
	addPackages(pkg, "dependencies", deps)
	addPackages(pkg, "devDependencies", devDeps)
	return writeObject(path, pkg)
}

func addPackages(pkg map[string]any, field string, specs []string) {
	if len(specs) == 0 {
		return
	}
	section, _ := pkg[field].(map[string]any)
	if section == nil {
		section = map[string]any{}
	}
	for _, spec := range specs {
		name, version := SplitPackage(spec)
		if _, exists := section[name]; exists && version == "*" {
			continue
		}
		section[name] = version
	}
	pkg[field] = section
}

// SplitPackage splits "name@version" (including scoped "@scope/name@1")
// into name and version; a missing version is "*".
func SplitPackage(spec string) (name, version string) {
	at := strings.LastIndex(spec, "@")
	if at <= 0 {
		return spec, "*"
	}
	if v := spec[at+1:]; v != "" {
		return spec[:at], v
	}
	return spec[:at], "*"
}
