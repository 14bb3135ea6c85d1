// Package config loads the agent configuration from YAML with environment
// overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full agent configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	Run     RunConfig     `yaml:"run"`
	Mining  MiningConfig  `yaml:"mining"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig selects the completion backend.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// SandboxConfig locates the container programs run in.
type SandboxConfig struct {
	ContainerID string   `yaml:"container_id"`
	WorkDir     string   `yaml:"work_dir"`
	RunTimeout  Duration `yaml:"run_timeout"`
	ExecTimeout Duration `yaml:"exec_timeout"`
}

// RunConfig bounds exploration runs.
type RunConfig struct {
	MaxStrategyAttempts int      `yaml:"max_strategy_attempts"`
	MaxCodeAttempts     int      `yaml:"max_code_attempts"`
	StrategyCount       int      `yaml:"strategy_count"`
	WorkPath            string   `yaml:"work_path"`
	SpecialCommands     []string `yaml:"special_commands"`
	DataDir             string   `yaml:"data_dir"`
}

// MiningConfig locates mining input and output.
type MiningConfig struct {
	InputDir   string `yaml:"input_dir"`
	OutputFile string `yaml:"output_file"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
		},
		Sandbox: SandboxConfig{
			WorkDir:     "/tmp",
			RunTimeout:  Duration(90 * time.Second),
			ExecTimeout: Duration(15 * time.Second),
		},
		Run: RunConfig{
			MaxStrategyAttempts: 3,
			MaxCodeAttempts:     5,
			StrategyCount:       3,
			WorkPath:            "/workspace",
			DataDir:             "data/runs",
		},
		Mining: MiningConfig{
			InputDir:   "data/runs",
			OutputFile: "data/pairs.jsonl",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. GEMINI_API_KEY in the environment overrides the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	return cfg, nil
}
