// Package manifest provides the JSON schema definition for the
// deterministic-JSON rendering of an aivi.toml project manifest.
package manifest

// ManifestSchemaJSON defines the JSON schema for aivi.manifest/v1, the
// shape `(*Manifest).ToJSON` produces.
const ManifestSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$id": "aivi.manifest/v1",
  "title": "AIVI Package Manifest",
  "description": "JSON rendering of an aivi.toml project file",
  "type": "object",
  "required": ["schema", "package"],
  "additionalProperties": false,
  "properties": {
    "schema": {
      "type": "string",
      "const": "aivi.manifest/v1"
    },
    "package": {
      "type": "object",
      "required": ["name", "version"],
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string"},
        "version": {"type": "string", "pattern": "^\\d+\\.\\d+\\.\\d+$"},
        "entry": {"type": "string", "pattern": "\\.aivi$"},
        "authors": {"type": "array", "items": {"type": "string"}}
      }
    },
    "dependencies": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "version": {"type": "string"},
          "path": {"type": "string"}
        }
      }
    },
    "build": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "target": {"type": "string"},
        "jit": {"type": "boolean"}
      }
    }
  }
}`
