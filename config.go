package exprc

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ErrConfigValidation is returned when configuration validation fails
var ErrConfigValidation = errors.New("configuration validation failed")

// Output format names accepted in configuration and on the command line.
const (
	FormatAsm  = "asm"
	FormatJSON = "json"
)

// Config represents the exprc configuration
type Config struct {
	Parser  ParserConfig  `yaml:"parser"`
	Output  OutputConfig  `yaml:"output"`
	Codegen CodegenConfig `yaml:"codegen"`
}

// ParserConfig represents input handling settings
type ParserConfig struct {
	SkipWhitespace bool `yaml:"skip_whitespace"` // allow blanks between grammar symbols
	MaxDepth       int  `yaml:"max_depth"`       // parenthesis nesting limit, 0 means unbounded
}

// OutputConfig represents compiler output settings
type OutputConfig struct {
	Format string `yaml:"format"` // "asm" or "json"
	Pretty bool   `yaml:"pretty"` // indent JSON output
}

// CodegenConfig represents Go source generation settings
type CodegenConfig struct {
	Package  string `yaml:"package"`  // package clause of the generated file
	Function string `yaml:"function"` // name of the generated function
}

// getDefaultConfig returns the configuration used when no file is present.
func getDefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format: FormatAsm,
		},
		Codegen: CodegenConfig{
			Package:  "main",
			Function: "Eval",
		},
	}
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	// Check if config file exists
	_, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		// Return default configuration if file doesn't exist
		return getDefaultConfig(), nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML with strict mode to detect unknown fields
	var config Config

	err = yaml.UnmarshalWithOptions(data, &config, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&config)

	return &config, nil
}

// validateConfig validates the configuration for common errors. Empty values
// are allowed here; applyDefaults fills them afterwards.
func validateConfig(config *Config) error {
	switch config.Output.Format {
	case "", FormatAsm, FormatJSON:
	default:
		return fmt.Errorf("%w: invalid output format %q (expected %q or %q)",
			ErrConfigValidation, config.Output.Format, FormatAsm, FormatJSON)
	}

	if config.Parser.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must not be negative, got %d",
			ErrConfigValidation, config.Parser.MaxDepth)
	}

	return nil
}

// applyDefaults fills in default values for unset configuration fields.
func applyDefaults(config *Config) {
	if config.Output.Format == "" {
		config.Output.Format = FormatAsm
	}

	if config.Codegen.Package == "" {
		config.Codegen.Package = "main"
	}

	if config.Codegen.Function == "" {
		config.Codegen.Function = "Eval"
	}
}
