package config

import (
	"fmt"
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstInt64Arg(n *document.Node) (int64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				out = append(out, nodeName(child))
			}
		}
	}
	return out
}

// loadKDLInto parses the KDL document at path and overlays its values
// onto cfg, leaving fields it doesn't mention at their defaults. Mirrors
// the teacher's node-by-node switch-on-name parsing style.
func loadKDLInto(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "workspace":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Workspace.Root = v })
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "poll_interval_seconds":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Watch.PollIntervalSeconds = v
					}
				case "debounce_seconds":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Watch.DebounceSeconds = v
					}
				case "recursive":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Recursive = b
					}
				case "patterns":
					cfg.Watch.Patterns = collectStringArgs(cn)
				case "ignore_patterns":
					cfg.Watch.IgnorePatterns = collectStringArgs(cn)
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if v, ok := firstInt64Arg(cn); ok {
						cfg.Index.MaxFileSize = v
					}
				case "chunk_max_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.ChunkMaxSize = v
					}
				case "mode":
					if s, ok := firstStringArg(cn); ok {
						cfg.Index.Mode = s
					}
				}
			}
		case "content_store":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "ttl_seconds":
					if v, ok := firstInt64Arg(cn); ok {
						cfg.ContentStore.TTLSeconds = v
					}
				case "max_references":
					if v, ok := firstIntArg(cn); ok {
						cfg.ContentStore.MaxReferences = v
					}
				case "max_search_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.ContentStore.MaxSearchResults = v
					}
				}
			}
		case "process":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_output_lines":
					if v, ok := firstIntArg(cn); ok {
						cfg.Process.MaxOutputLines = v
					}
				case "kill_grace_seconds":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Process.KillGraceSeconds = v
					}
				}
			}
		case "stream":
			for _, cn := range n.Children {
				if nodeName(cn) == "ring_buffer_size" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Stream.RingBufferSize = v
					}
				}
			}
		case "editor":
			for _, cn := range n.Children {
				if nodeName(cn) == "backup_retention_days" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Editor.BackupRetentionDays = v
					}
				}
			}
		case "tasklist":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_undo_history":
					if v, ok := firstIntArg(cn); ok {
						cfg.TaskList.MaxUndoHistory = v
					}
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.TaskList.MaxDepth = v
					}
				}
			}
		case "coordinator":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_queue_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Coordinator.MaxQueueSize = v
					}
				case "heartbeat_timeout_seconds":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Coordinator.HeartbeatTimeoutSeconds = v
					}
				case "health_check_interval_seconds":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Coordinator.HealthCheckIntervalSeconds = v
					}
				}
			}
		case "git":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "timeout_seconds":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Git.TimeoutSeconds = v
					}
				case "max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.Git.MaxResults = v
					}
				}
			}
		}
	}
	return nil
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
