// Package config loads and validates ContextForge's configuration: a
// nested struct-per-concern layout mirroring the teacher's config
// package, populated from a KDL or TOML file with environment-variable
// overrides and sane defaults matching spec §5's resource limits.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Workspace identifies the project root all file operations are scoped to.
type Workspace struct {
	Root string `kdl:"root"`
}

// Watch configures the File Watcher (C2).
type Watch struct {
	PollIntervalSeconds float64  `kdl:"poll_interval_seconds"`
	DebounceSeconds     float64  `kdl:"debounce_seconds"`
	Patterns            []string `kdl:"patterns"`
	IgnorePatterns      []string `kdl:"ignore_patterns"`
	Recursive           bool     `kdl:"recursive"`
}

// Index configures the Semantic Chunker and Incremental Indexer (C3/C4).
type Index struct {
	MaxFileSize   int64  `kdl:"max_file_size"`
	ChunkMaxSize  int    `kdl:"chunk_max_size"`
	Mode          string `kdl:"mode"` // AUTO | TREE_SITTER | REGEX
}

// ContentStore configures the Fingerprint & Content Store (C1).
type ContentStore struct {
	TTLSeconds       int64 `kdl:"ttl_seconds"`
	MaxReferences    int   `kdl:"max_references"`
	MaxSearchResults int   `kdl:"max_search_results"`
}

// Process configures the Process Supervisor (C6).
type Process struct {
	MaxOutputLines   int     `kdl:"max_output_lines"`
	KillGraceSeconds float64 `kdl:"kill_grace_seconds"`
}

// Stream configures the Stream Supervisor (C7).
type Stream struct {
	RingBufferSize int `kdl:"ring_buffer_size"`
}

// Editor configures the File Editor (C8).
type Editor struct {
	BackupRetentionDays int `kdl:"backup_retention_days"`
}

// TaskList configures the Task-List Manager (C11).
type TaskList struct {
	MaxUndoHistory int `kdl:"max_undo_history"`
	MaxDepth       int `kdl:"max_depth"`
}

// Coordinator configures the Remote-Agent Coordinator (C12).
type Coordinator struct {
	MaxQueueSize               int     `kdl:"max_queue_size"`
	HeartbeatTimeoutSeconds    float64 `kdl:"heartbeat_timeout_seconds"`
	HealthCheckIntervalSeconds float64 `kdl:"health_check_interval_seconds"`
	FuzzyCapabilityMatching    bool    `kdl:"fuzzy_capability_matching"`
	FuzzyCapabilityThreshold   float64 `kdl:"fuzzy_capability_threshold"`
}

// Git configures the Git Retrieval component (C10).
type Git struct {
	TimeoutSeconds float64 `kdl:"timeout_seconds"`
	MaxResults     int     `kdl:"max_results"`
}

// Config is the root ContextForge configuration object.
type Config struct {
	Workspace    Workspace
	Watch        Watch
	Index        Index
	ContentStore ContentStore
	Process      Process
	Stream       Stream
	Editor       Editor
	TaskList     TaskList
	Coordinator  Coordinator
	Git          Git
}

// Default returns a Config populated with the resource limits mandated
// (or defaulted) by spec §5.
func Default() *Config {
	return &Config{
		Watch: Watch{
			PollIntervalSeconds: 1.0,
			DebounceSeconds:     0.5,
			Patterns:            []string{"*"},
			IgnorePatterns:      []string{".git", "node_modules", ".contextforge", "__pycache__", ".venv"},
			Recursive:           true,
		},
		Index: Index{
			MaxFileSize:  10 * 1024 * 1024,
			ChunkMaxSize: 4000,
			Mode:         "AUTO",
		},
		ContentStore: ContentStore{
			TTLSeconds:       3600,
			MaxReferences:    100,
			MaxSearchResults: 100,
		},
		Process: Process{
			MaxOutputLines:   1000,
			KillGraceSeconds: 5,
		},
		Stream: Stream{
			RingBufferSize: 10000,
		},
		Editor: Editor{
			BackupRetentionDays: 30,
		},
		TaskList: TaskList{
			MaxUndoHistory: 50,
			MaxDepth:       10,
		},
		Coordinator: Coordinator{
			MaxQueueSize:               10000,
			HeartbeatTimeoutSeconds:    30,
			HealthCheckIntervalSeconds: 5,
			FuzzyCapabilityMatching:    false,
			FuzzyCapabilityThreshold:   0.85,
		},
		Git: Git{
			TimeoutSeconds: 30,
			MaxResults:     500,
		},
	}
}

// Load reads configuration for the given workspace root: it tries
// "<root>/.contextforge.kdl", then "<root>/.contextforge.toml", falling
// back to defaults if neither exists. Environment overrides are applied
// last.
func Load(root string) (*Config, error) {
	cfg := Default()
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	cfg.Workspace.Root = absRoot

	kdlPath := filepath.Join(absRoot, ".contextforge.kdl")
	if _, statErr := os.Stat(kdlPath); statErr == nil {
		if loadErr := loadKDLInto(cfg, kdlPath); loadErr != nil {
			return nil, fmt.Errorf("loading %s: %w", kdlPath, loadErr)
		}
	} else {
		tomlPath := filepath.Join(absRoot, ".contextforge.toml")
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if loadErr := loadTOMLInto(cfg, tomlPath); loadErr != nil {
				return nil, fmt.Errorf("loading %s: %w", tomlPath, loadErr)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides mirrors the teacher's LCI_* environment convention,
// renamed to CONTEXTFORGE_*.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONTEXTFORGE_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Index.MaxFileSize = n
		}
	}
	if v := os.Getenv("CONTEXTFORGE_DEBOUNCE_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Watch.DebounceSeconds = f
		}
	}
	if v := os.Getenv("CONTEXTFORGE_HEARTBEAT_TIMEOUT_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Coordinator.HeartbeatTimeoutSeconds = f
		}
	}
	if v := os.Getenv("CONTEXTFORGE_MAX_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Coordinator.MaxQueueSize = n
		}
	}
}

// Validate performs range checks on the configuration, matching the
// teacher's SearchRanking.Validate convention.
func (c *Config) Validate() error {
	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace.root must not be empty")
	}
	if c.Index.MaxFileSize <= 0 {
		return fmt.Errorf("index.max_file_size must be positive, got %d", c.Index.MaxFileSize)
	}
	switch c.Index.Mode {
	case "AUTO", "TREE_SITTER", "REGEX":
	default:
		return fmt.Errorf("index.mode must be one of AUTO|TREE_SITTER|REGEX, got %q", c.Index.Mode)
	}
	if c.Watch.PollIntervalSeconds <= 0 {
		return fmt.Errorf("watch.poll_interval_seconds must be positive")
	}
	if c.Process.MaxOutputLines <= 0 {
		return fmt.Errorf("process.max_output_lines must be positive")
	}
	if c.Stream.RingBufferSize <= 0 {
		return fmt.Errorf("stream.ring_buffer_size must be positive")
	}
	if c.TaskList.MaxDepth <= 0 || c.TaskList.MaxDepth > 100 {
		return fmt.Errorf("tasklist.max_depth must be in (0, 100]")
	}
	if c.Coordinator.MaxQueueSize <= 0 {
		return fmt.Errorf("coordinator.max_queue_size must be positive")
	}
	if c.Coordinator.HeartbeatTimeoutSeconds <= 0 {
		return fmt.Errorf("coordinator.heartbeat_timeout_seconds must be positive")
	}
	return nil
}
