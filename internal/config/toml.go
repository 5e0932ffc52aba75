package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors Config's shape for environments that prefer TOML
// over KDL; fields absent from the file keep cfg's current (default)
// values because Unmarshal only overwrites keys present in the document.
type tomlConfig struct {
	Workspace struct {
		Root string `toml:"root"`
	} `toml:"workspace"`
	Watch struct {
		PollIntervalSeconds float64  `toml:"poll_interval_seconds"`
		DebounceSeconds     float64  `toml:"debounce_seconds"`
		Patterns            []string `toml:"patterns"`
		IgnorePatterns      []string `toml:"ignore_patterns"`
		Recursive           bool     `toml:"recursive"`
	} `toml:"watch"`
	Index struct {
		MaxFileSize  int64  `toml:"max_file_size"`
		ChunkMaxSize int    `toml:"chunk_max_size"`
		Mode         string `toml:"mode"`
	} `toml:"index"`
	ContentStore struct {
		TTLSeconds       int64 `toml:"ttl_seconds"`
		MaxReferences    int   `toml:"max_references"`
		MaxSearchResults int   `toml:"max_search_results"`
	} `toml:"content_store"`
	Process struct {
		MaxOutputLines   int     `toml:"max_output_lines"`
		KillGraceSeconds float64 `toml:"kill_grace_seconds"`
	} `toml:"process"`
	Stream struct {
		RingBufferSize int `toml:"ring_buffer_size"`
	} `toml:"stream"`
	Editor struct {
		BackupRetentionDays int `toml:"backup_retention_days"`
	} `toml:"editor"`
	TaskList struct {
		MaxUndoHistory int `toml:"max_undo_history"`
		MaxDepth       int `toml:"max_depth"`
	} `toml:"tasklist"`
	Coordinator struct {
		MaxQueueSize               int     `toml:"max_queue_size"`
		HeartbeatTimeoutSeconds    float64 `toml:"heartbeat_timeout_seconds"`
		HealthCheckIntervalSeconds float64 `toml:"health_check_interval_seconds"`
	} `toml:"coordinator"`
	Git struct {
		TimeoutSeconds float64 `toml:"timeout_seconds"`
		MaxResults     int     `toml:"max_results"`
	} `toml:"git"`
}

func loadTOMLInto(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var tc tomlConfig
	// Seed the decode target from the current defaults so that keys
	// absent from the file don't zero out already-populated fields.
	tc.Workspace.Root = cfg.Workspace.Root
	tc.Watch.PollIntervalSeconds = cfg.Watch.PollIntervalSeconds
	tc.Watch.DebounceSeconds = cfg.Watch.DebounceSeconds
	tc.Watch.Patterns = cfg.Watch.Patterns
	tc.Watch.IgnorePatterns = cfg.Watch.IgnorePatterns
	tc.Watch.Recursive = cfg.Watch.Recursive
	tc.Index.MaxFileSize = cfg.Index.MaxFileSize
	tc.Index.ChunkMaxSize = cfg.Index.ChunkMaxSize
	tc.Index.Mode = cfg.Index.Mode
	tc.ContentStore.TTLSeconds = cfg.ContentStore.TTLSeconds
	tc.ContentStore.MaxReferences = cfg.ContentStore.MaxReferences
	tc.ContentStore.MaxSearchResults = cfg.ContentStore.MaxSearchResults
	tc.Process.MaxOutputLines = cfg.Process.MaxOutputLines
	tc.Process.KillGraceSeconds = cfg.Process.KillGraceSeconds
	tc.Stream.RingBufferSize = cfg.Stream.RingBufferSize
	tc.Editor.BackupRetentionDays = cfg.Editor.BackupRetentionDays
	tc.TaskList.MaxUndoHistory = cfg.TaskList.MaxUndoHistory
	tc.TaskList.MaxDepth = cfg.TaskList.MaxDepth
	tc.Coordinator.MaxQueueSize = cfg.Coordinator.MaxQueueSize
	tc.Coordinator.HeartbeatTimeoutSeconds = cfg.Coordinator.HeartbeatTimeoutSeconds
	tc.Coordinator.HealthCheckIntervalSeconds = cfg.Coordinator.HealthCheckIntervalSeconds
	tc.Git.TimeoutSeconds = cfg.Git.TimeoutSeconds
	tc.Git.MaxResults = cfg.Git.MaxResults

	if err := toml.Unmarshal(content, &tc); err != nil {
		return err
	}

	cfg.Workspace.Root = tc.Workspace.Root
	cfg.Watch.PollIntervalSeconds = tc.Watch.PollIntervalSeconds
	cfg.Watch.DebounceSeconds = tc.Watch.DebounceSeconds
	cfg.Watch.Patterns = tc.Watch.Patterns
	cfg.Watch.IgnorePatterns = tc.Watch.IgnorePatterns
	cfg.Watch.Recursive = tc.Watch.Recursive
	cfg.Index.MaxFileSize = tc.Index.MaxFileSize
	cfg.Index.ChunkMaxSize = tc.Index.ChunkMaxSize
	cfg.Index.Mode = tc.Index.Mode
	cfg.ContentStore.TTLSeconds = tc.ContentStore.TTLSeconds
	cfg.ContentStore.MaxReferences = tc.ContentStore.MaxReferences
	cfg.ContentStore.MaxSearchResults = tc.ContentStore.MaxSearchResults
	cfg.Process.MaxOutputLines = tc.Process.MaxOutputLines
	cfg.Process.KillGraceSeconds = tc.Process.KillGraceSeconds
	cfg.Stream.RingBufferSize = tc.Stream.RingBufferSize
	cfg.Editor.BackupRetentionDays = tc.Editor.BackupRetentionDays
	cfg.TaskList.MaxUndoHistory = tc.TaskList.MaxUndoHistory
	cfg.TaskList.MaxDepth = tc.TaskList.MaxDepth
	cfg.Coordinator.MaxQueueSize = tc.Coordinator.MaxQueueSize
	cfg.Coordinator.HeartbeatTimeoutSeconds = tc.Coordinator.HeartbeatTimeoutSeconds
	cfg.Coordinator.HealthCheckIntervalSeconds = tc.Coordinator.HealthCheckIntervalSeconds
	cfg.Git.TimeoutSeconds = tc.Git.TimeoutSeconds
	cfg.Git.MaxResults = tc.Git.MaxResults
	return nil
}
