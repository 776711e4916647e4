package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultBinary       = "FMDeveloperTool"
	defaultTimeout      = 3600
	defaultExtension    = ".fmp12"
	defaultOutputSuffix = "_recovered"
	defaultLogName      = "Recover.log"
	defaultFindBinary   = "/usr/bin/find"
	defaultMaxDepth     = 2
)

type ToolConfig struct {
	Binary                 string `yaml:"binary"`
	Timeout                int    `yaml:"timeout"`
	Extension              string `yaml:"extension"`
	OutputSuffix           string `yaml:"output_suffix"`
	LogName                string `yaml:"log_name"`
	TreatExitCodeAsFailure *bool  `yaml:"treat_exit_code_as_failure"`
	FailOnLogProblems      bool   `yaml:"fail_on_log_problems"`
	SkipSchema             bool   `yaml:"skip_schema"`
	SkipStructure          bool   `yaml:"skip_structure"`
	RebuildIndex           string `yaml:"rebuild_index"` // "", now, later, false
	KeepCaches             bool   `yaml:"keep_caches"`
	Bypass                 bool   `yaml:"bypass"`
	Generate               string `yaml:"generate"` // "", rebuild, datablocks, asis
	Username               string `yaml:"username"`
}

type DiscoveryConfig struct {
	Mode       string `yaml:"mode"` // auto, find, walk
	FindBinary string `yaml:"find_binary"`
	MaxDepth   int    `yaml:"max_depth"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Config struct {
	Tool      ToolConfig      `yaml:"tool"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	History   HistoryConfig   `yaml:"history"`
	FailFast  bool            `yaml:"fail_fast"`
	BaseDir   string          `yaml:"-"`
}

func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".fmrecovery")
	strict := true
	return &Config{
		Tool: ToolConfig{
			Binary:                 defaultBinary,
			Timeout:                defaultTimeout,
			Extension:              defaultExtension,
			OutputSuffix:           defaultOutputSuffix,
			LogName:                defaultLogName,
			TreatExitCodeAsFailure: &strict,
		},
		Discovery: DiscoveryConfig{
			Mode:       "auto",
			FindBinary: defaultFindBinary,
			MaxDepth:   defaultMaxDepth,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(base, "history.db"),
		},
		BaseDir: base,
	}
}

// DefaultPath returns ~/.fmrecovery/config.yaml.
func DefaultPath() string {
	return filepath.Join(Default().BaseDir, "config.yaml")
}

func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	// Ensure defaults for zero values
	if cfg.Tool.Binary == "" {
		cfg.Tool.Binary = defaultBinary
	}
	if cfg.Tool.Timeout == 0 {
		cfg.Tool.Timeout = defaultTimeout
	}
	if cfg.Tool.Extension == "" {
		cfg.Tool.Extension = defaultExtension
	}
	if cfg.Tool.OutputSuffix == "" {
		cfg.Tool.OutputSuffix = defaultOutputSuffix
	}
	if cfg.Tool.LogName == "" {
		cfg.Tool.LogName = defaultLogName
	}
	if cfg.Tool.TreatExitCodeAsFailure == nil {
		strict := true
		cfg.Tool.TreatExitCodeAsFailure = &strict
	}
	if cfg.Discovery.Mode == "" {
		cfg.Discovery.Mode = "auto"
	}
	if cfg.Discovery.FindBinary == "" {
		cfg.Discovery.FindBinary = defaultFindBinary
	}
	if cfg.Discovery.MaxDepth == 0 {
		cfg.Discovery.MaxDepth = defaultMaxDepth
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = Default().BaseDir
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.BaseDir, "history.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the recovery tool or the finder would not accept.
func (c *Config) Validate() error {
	switch c.Tool.RebuildIndex {
	case "", "now", "later", "false":
	default:
		return fmt.Errorf("config: tool.rebuild_index must be now, later or false, got %q", c.Tool.RebuildIndex)
	}
	switch c.Tool.Generate {
	case "", "rebuild", "datablocks", "asis":
	default:
		return fmt.Errorf("config: tool.generate must be rebuild, datablocks or asis, got %q", c.Tool.Generate)
	}
	switch c.Discovery.Mode {
	case "auto", "find", "walk":
	default:
		return fmt.Errorf("config: discovery.mode must be auto, find or walk, got %q", c.Discovery.Mode)
	}
	if c.Tool.Timeout < 0 {
		return fmt.Errorf("config: tool.timeout must not be negative")
	}
	if c.Discovery.MaxDepth < 1 {
		return fmt.Errorf("config: discovery.max_depth must be at least 1")
	}
	return nil
}

// StrictExitCode reports whether a non-zero tool exit code fails the file.
func (c *Config) StrictExitCode() bool {
	return c.Tool.TreatExitCodeAsFailure == nil || *c.Tool.TreatExitCodeAsFailure
}

func (c *Config) EnsureDirs() error {
	dirs := []string{c.BaseDir}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
