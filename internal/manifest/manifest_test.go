package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewManifestDefaults(t *testing.T) {
	m := New("demo")
	if m.Schema != SchemaVersion {
		t.Errorf("Schema = %s, want %s", m.Schema, SchemaVersion)
	}
	if m.Package.Version != "0.1.0" {
		t.Errorf("Version = %s, want 0.1.0", m.Package.Version)
	}
	if m.Package.Entry != "main.aivi" {
		t.Errorf("Entry = %s, want main.aivi", m.Package.Entry)
	}
	if m.Build.Target != "target" {
		t.Errorf("Target = %s, want target", m.Build.Target)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("default manifest should validate, got: %v", err)
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Manifest)
		wantErr bool
	}{
		{"valid", func(m *Manifest) {}, false},
		{"missing name", func(m *Manifest) { m.Package.Name = "" }, true},
		{"missing version", func(m *Manifest) { m.Package.Version = "" }, true},
		{"bad version", func(m *Manifest) { m.Package.Version = "latest" }, true},
		{"bad entry extension", func(m *Manifest) { m.Package.Entry = "main.go" }, true},
		{
			"dependency with both version and path",
			func(m *Manifest) {
				m.Dependencies = map[string]Dependency{
					"other": {Version: "1.0.0", Path: "../other"},
				}
			},
			true,
		},
		{
			"dependency with neither version nor path",
			func(m *Manifest) {
				m.Dependencies = map[string]Dependency{"other": {}}
			},
			true,
		},
		{
			"dependency with path only",
			func(m *Manifest) {
				m.Dependencies = map[string]Dependency{"other": {Path: "../other"}}
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("demo")
			tt.modify(m)
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aivi.toml")

	m := New("roundtrip")
	m.Package.Authors = []string{"a dev"}
	m.Dependencies = map[string]Dependency{
		"collections": {Version: "^1.2.0"},
		"local-util":  {Path: "../local-util"},
	}

	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty aivi.toml")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Package.Name != "roundtrip" {
		t.Errorf("Name = %s, want roundtrip", loaded.Package.Name)
	}
	if loaded.Dependencies["collections"].Version != "^1.2.0" {
		t.Errorf("collections version = %q, want ^1.2.0", loaded.Dependencies["collections"].Version)
	}
	if loaded.Dependencies["local-util"].Path != "../local-util" {
		t.Errorf("local-util path = %q, want ../local-util", loaded.Dependencies["local-util"].Path)
	}
}

func TestManifestToJSON(t *testing.T) {
	m := New("demo")
	data, err := m.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty JSON")
	}
}

func TestManifestDigestStable(t *testing.T) {
	m := New("demo")
	d1 := m.Digest()
	d2 := m.Digest()
	if d1 != d2 {
		t.Errorf("Digest() not stable: %s != %s", d1, d2)
	}
	if d1[:7] != "sha256:" {
		t.Errorf("Digest() = %s, want sha256: prefix", d1)
	}
}
