// Package manifest provides types and validation for a package's aivi.toml
// project file: the package identity, its entry point, and its dependency
// set, as laid out in the on-disk project layout.
package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/aivi-lang/aivi/internal/schema"
)

// SchemaVersion identifies the shape of the manifest this package reads
// and writes; bumped whenever a field is added or renamed in a way that
// changes how an older aivi.toml should be interpreted.
const SchemaVersion = "aivi.manifest/v1"

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Package identifies the project: its name, semantic version, the entry
// source file the `run`/`build` subcommands resolve `main` from, and the
// authors line carried through into generated build metadata.
type Package struct {
	Name    string   `toml:"name" json:"name"`
	Version string   `toml:"version" json:"version"`
	Entry   string   `toml:"entry,omitempty" json:"entry,omitempty"`
	Authors []string `toml:"authors,omitempty" json:"authors,omitempty"`
}

// Dependency pins a single required package by version constraint and,
// for non-registry dependencies, a local path override.
type Dependency struct {
	Version string `toml:"version,omitempty" json:"version,omitempty"`
	Path    string `toml:"path,omitempty" json:"path,omitempty"`
}

// Build carries compilation settings that apply to the whole package.
type Build struct {
	Target string `toml:"target,omitempty" json:"target,omitempty"`
	JIT    *bool  `toml:"jit,omitempty" json:"jit,omitempty"`
}

// Manifest is the parsed contents of an aivi.toml project file.
type Manifest struct {
	Schema       string                `toml:"-" json:"schema"`
	Package      Package               `toml:"package" json:"package"`
	Dependencies map[string]Dependency `toml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Build        Build                 `toml:"build,omitempty" json:"build,omitempty"`
}

// New returns a manifest with the defaults a freshly scaffolded package
// gets: entry point main.aivi, version 0.1.0, target directory "target".
func New(name string) *Manifest {
	return &Manifest{
		Schema: SchemaVersion,
		Package: Package{
			Name:    name,
			Version: "0.1.0",
			Entry:   "main.aivi",
		},
		Build: Build{Target: "target"},
	}
}

// Load reads and validates an aivi.toml project file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m.Schema = SchemaVersion
	if m.Build.Target == "" {
		m.Build.Target = "target"
	}
	if m.Package.Entry == "" {
		m.Package.Entry = "main.aivi"
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}
	return &m, nil
}

// Save writes the manifest back out as aivi.toml.
func (m *Manifest) Save(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ToJSON renders the manifest as deterministic JSON, used by `aivi
// manifest --json` for tooling that would rather not parse TOML.
func (m *Manifest) ToJSON() ([]byte, error) {
	data, err := schema.MarshalDeterministic(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return schema.FormatJSON(data)
}

// Validate checks the manifest for the constraints a package name,
// version, entry point, and dependency set must satisfy.
func (m *Manifest) Validate() error {
	if m.Schema != "" && !schema.Accepts(m.Schema, schema.ManifestV1) {
		return fmt.Errorf("unsupported schema version: %s (expected %s)", m.Schema, schema.ManifestV1)
	}
	if m.Package.Name == "" {
		return fmt.Errorf("package.name is required")
	}
	if m.Package.Version == "" {
		return fmt.Errorf("package.version is required")
	}
	if !versionPattern.MatchString(m.Package.Version) {
		return fmt.Errorf("package.version %q is not a semantic version (MAJOR.MINOR.PATCH)", m.Package.Version)
	}
	entry := m.Package.Entry
	if entry == "" {
		entry = "main.aivi"
	}
	if !hasAiviExtension(entry) {
		return fmt.Errorf("package.entry %q must have a .aivi extension", entry)
	}

	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dep := m.Dependencies[name]
		if dep.Version == "" && dep.Path == "" {
			return fmt.Errorf("dependency %q must set version or path", name)
		}
		if dep.Version != "" && dep.Path != "" {
			return fmt.Errorf("dependency %q must not set both version and path", name)
		}
	}
	return nil
}

func hasAiviExtension(path string) bool {
	if len(path) < 6 {
		return false
	}
	return path[len(path)-5:] == ".aivi"
}

// Digest returns a short content hash identifying this manifest's
// package identity and dependency set, used to detect a stale lockfile
// without re-parsing the whole aivi.toml.
func (m *Manifest) Digest() string {
	data, _ := m.ToJSON()
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])[:16]
}
