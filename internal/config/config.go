// Package config provides configuration management for pipetrack.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (PIPETRACK_*, AUDIT_LOG_PATH)
// 3. Project config (.pipetrack/config.yaml at the project root)
// 4. Home config (~/.pipetrack/config.yaml)
// 5. Defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/boshu2/pipetrack/internal/types"
)

// Environment variable names recognized by Load.
const (
	EnvSessionDir = "PIPETRACK_SESSION_DIR"
	EnvAuditLog   = "PIPETRACK_AUDIT_LOG"
	EnvOutput     = "PIPETRACK_OUTPUT"

	// EnvAuditLogOverride is the hook-facing override and wins over
	// EnvAuditLog and any config file.
	EnvAuditLogOverride = "AUDIT_LOG_PATH"
)

// Config holds all pipetrack configuration.
type Config struct {
	// SessionDir is where session documents live, relative to the project
	// root (default: docs/sessions).
	SessionDir string `yaml:"session_dir" json:"session_dir"`

	// AuditLog is the audit log path, relative to the project root unless
	// absolute (default: docs/sessions/audit.log).
	AuditLog string `yaml:"audit_log" json:"audit_log"`

	// Output controls the default output format (table, json).
	Output string `yaml:"output" json:"output"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Pipeline describes the agent pipeline and its parallel phases.
	Pipeline Pipeline `yaml:"pipeline" json:"pipeline"`
}

// Pipeline is the construction-time description of the agent pipeline. The
// CLI owns the single process-wide instance and hands it to the tracker;
// nothing in the library reads mutable package state.
type Pipeline struct {
	// Agents is the expected agent set in canonical pipeline order.
	Agents []AgentSpec `yaml:"agents" json:"agents"`

	// ExplorationPhase lists the members of the two-agent parallel phase.
	ExplorationPhase []string `yaml:"exploration_phase" json:"exploration_phase"`

	// ValidationPhase lists the members of the three-agent parallel phase.
	ValidationPhase []string `yaml:"validation_phase" json:"validation_phase"`

	// ParallelWindow is the exclusive upper bound on pairwise start-time
	// spread for a phase to classify as parallel.
	ParallelWindow time.Duration `yaml:"parallel_window" json:"parallel_window"`
}

// AgentSpec describes one expected agent for display purposes.
type AgentSpec struct {
	// Name is the canonical agent name.
	Name string `yaml:"name" json:"name"`

	// Description is the free-form display description.
	Description string `yaml:"description" json:"description"`
}

// Default config values.
const (
	defaultSessionDir = "docs/sessions"
	defaultAuditLog   = "docs/sessions/audit.log"
	defaultOutput     = "table"

	// DefaultParallelWindow is the canonical 5-second rule; exactly 5.0s
	// classifies as sequential.
	DefaultParallelWindow = 5 * time.Second
)

// DefaultPipeline returns the canonical seven-agent pipeline.
func DefaultPipeline() Pipeline {
	agents := make([]AgentSpec, 0, len(types.PipelineAgents))
	for _, name := range types.PipelineAgents {
		agents = append(agents, AgentSpec{
			Name:        name,
			Description: types.AgentDescriptions[name],
		})
	}
	return Pipeline{
		Agents:           agents,
		ExplorationPhase: append([]string(nil), types.ExplorationAgents...),
		ValidationPhase:  append([]string(nil), types.ValidationAgents...),
		ParallelWindow:   DefaultParallelWindow,
	}
}

// Names returns the agent names in pipeline order.
func (p Pipeline) Names() []string {
	names := make([]string, 0, len(p.Agents))
	for _, a := range p.Agents {
		names = append(names, a.Name)
	}
	return names
}

// Contains reports whether name is a member of the pipeline.
func (p Pipeline) Contains(name string) bool {
	for _, a := range p.Agents {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Description returns the display description for name, or "".
func (p Pipeline) Description(name string) string {
	for _, a := range p.Agents {
		if a.Name == name {
			return a.Description
		}
	}
	return ""
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		SessionDir: defaultSessionDir,
		AuditLog:   defaultAuditLog,
		Output:     defaultOutput,
		Pipeline:   DefaultPipeline(),
	}
}

// Load resolves configuration with proper precedence. projectRoot may be
// empty when discovery failed; the project-level config is then skipped.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".pipetrack", "config.yaml")
		fileCfg, err := loadFromPath(path)
		switch {
		case err != nil:
			// The home config is advisory; a broken one is reported, not fatal.
			fmt.Fprintf(os.Stderr, "pipetrack: ignoring %s: %v\n", path, err)
		case fileCfg != nil:
			merge(cfg, fileCfg)
		}
	}

	if projectRoot != "" {
		if fileCfg, err := loadFromPath(filepath.Join(projectRoot, ".pipetrack", "config.yaml")); err != nil {
			return nil, err
		} else if fileCfg != nil {
			merge(cfg, fileCfg)
		}
	}

	applyEnv(cfg)
	normalize(cfg)
	return cfg, nil
}

// loadFromPath reads a config file, returning (nil, nil) when absent.
func loadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays non-zero fields from overlay onto base.
func merge(base, overlay *Config) {
	if overlay.SessionDir != "" {
		base.SessionDir = overlay.SessionDir
	}
	if overlay.AuditLog != "" {
		base.AuditLog = overlay.AuditLog
	}
	if overlay.Output != "" {
		base.Output = overlay.Output
	}
	if overlay.Verbose {
		base.Verbose = true
	}
	if len(overlay.Pipeline.Agents) > 0 {
		base.Pipeline.Agents = overlay.Pipeline.Agents
	}
	if len(overlay.Pipeline.ExplorationPhase) > 0 {
		base.Pipeline.ExplorationPhase = overlay.Pipeline.ExplorationPhase
	}
	if len(overlay.Pipeline.ValidationPhase) > 0 {
		base.Pipeline.ValidationPhase = overlay.Pipeline.ValidationPhase
	}
	if overlay.Pipeline.ParallelWindow > 0 {
		base.Pipeline.ParallelWindow = overlay.Pipeline.ParallelWindow
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvSessionDir); v != "" {
		cfg.SessionDir = v
	}
	if v := os.Getenv(EnvAuditLog); v != "" {
		cfg.AuditLog = v
	}
	if v := os.Getenv(EnvAuditLogOverride); v != "" {
		cfg.AuditLog = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		cfg.Output = v
	}
}

func normalize(cfg *Config) {
	if cfg.Pipeline.ParallelWindow <= 0 {
		cfg.Pipeline.ParallelWindow = DefaultParallelWindow
	}
	if len(cfg.Pipeline.Agents) == 0 {
		cfg.Pipeline = DefaultPipeline()
	}
}
