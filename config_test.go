package exprc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestLoadConfig_MissingFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "exprc.yaml")

	config, err := LoadConfig(configPath)
	assert.NoError(t, err)

	// Missing file yields the default configuration
	assert.Equal(t, FormatAsm, config.Output.Format)
	assert.False(t, config.Output.Pretty)
	assert.Equal(t, "main", config.Codegen.Package)
	assert.Equal(t, "Eval", config.Codegen.Function)
	assert.False(t, config.Parser.SkipWhitespace)
	assert.Equal(t, 0, config.Parser.MaxDepth)
}

func TestLoadConfig_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "exprc.yaml")

	configContent := `
parser:
  skip_whitespace: true
  max_depth: 32
output:
  format: "json"
  pretty: true
codegen:
  package: "calc"
  function: "Result"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	config, err := LoadConfig(configPath)
	assert.NoError(t, err)
	assert.True(t, config.Parser.SkipWhitespace)
	assert.Equal(t, 32, config.Parser.MaxDepth)
	assert.Equal(t, FormatJSON, config.Output.Format)
	assert.True(t, config.Output.Pretty)
	assert.Equal(t, "calc", config.Codegen.Package)
	assert.Equal(t, "Result", config.Codegen.Function)
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "exprc.yaml")

	configContent := `
output:
  format: "json"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	// Unset sections fall back to defaults
	config, err := LoadConfig(configPath)
	assert.NoError(t, err)
	assert.Equal(t, FormatJSON, config.Output.Format)
	assert.Equal(t, "main", config.Codegen.Package)
	assert.Equal(t, "Eval", config.Codegen.Function)
	assert.False(t, config.Parser.SkipWhitespace)
}

func TestLoadConfig_StrictMode_UnknownKeys(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "exprc.yaml")

	configContent := `
output:
  format: "asm"
unknown_key: "should cause error"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	_, err = LoadConfig(configPath)
	assert.Error(t, err, "expected error for unknown keys in strict mode")
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "exprc.yaml")

	configContent := `
output:
  format: "xml"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	_, err = LoadConfig(configPath)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigValidation))
}

func TestLoadConfig_NegativeMaxDepth(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "exprc.yaml")

	configContent := `
parser:
  max_depth: -1
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	_, err = LoadConfig(configPath)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigValidation))
}
