package indexer

import (
	"os"

	"github.com/standardbeagle/contextforge/internal/chunk"
	"github.com/standardbeagle/contextforge/internal/debug"
	"github.com/standardbeagle/contextforge/internal/types"
	"github.com/standardbeagle/contextforge/internal/watch"
)

// LiveIndexer binds a C2 watch to this Indexer: CREATE/MODIFY events
// trigger IndexFile, DELETE events trigger RemoveFile. Events whose path
// extension has no registered language are skipped silently.
type LiveIndexer struct {
	manager  *watch.Manager
	indexer  *Indexer
	watchID  string
	mode     chunk.Mode
	onUpdate func(UpdateEvent)
}

// NewLiveIndexer starts a watch via manager under cfg and binds it to
// indexer. onUpdate, if non-nil, is invoked after each successful update.
func NewLiveIndexer(manager *watch.Manager, indexer *Indexer, cfg watch.Config, mode chunk.Mode, onUpdate func(UpdateEvent)) (*LiveIndexer, error) {
	watchID, err := manager.StartWatch(cfg)
	if err != nil {
		return nil, err
	}
	return &LiveIndexer{manager: manager, indexer: indexer, watchID: watchID, mode: mode, onUpdate: onUpdate}, nil
}

// Pump drains up to max pending file events and applies them to the
// Indexer. Returns the number of events processed.
func (l *LiveIndexer) Pump(max int) (int, error) {
	events, err := l.manager.GetEvents(l.watchID, max)
	if err != nil {
		return 0, err
	}
	for _, evt := range events {
		l.apply(evt)
	}
	return len(events), nil
}

func (l *LiveIndexer) apply(evt types.FileEvent) {
	language := chunk.LanguageForPath(evt.Path)
	if language == "" {
		return
	}

	switch evt.Type {
	case types.FileCreated, types.FileModified:
		content, err := os.ReadFile(evt.Path)
		if err != nil {
			debug.LogIndex("live indexer: read %s: %v", evt.Path, err)
			return
		}
		chunks, err := l.indexer.IndexFile(evt.Path, string(content), language, l.mode, true)
		if err != nil {
			debug.LogIndex("live indexer: index %s: %v", evt.Path, err)
			return
		}
		if l.onUpdate != nil {
			l.onUpdate(UpdateEvent{EventType: evt.Type, FilePath: evt.Path, Language: language, Chunks: chunks})
		}
	case types.FileDeleted:
		if err := l.indexer.RemoveFile(evt.Path); err != nil {
			debug.LogIndex("live indexer: remove %s: %v", evt.Path, err)
			return
		}
		if l.onUpdate != nil {
			l.onUpdate(UpdateEvent{EventType: evt.Type, FilePath: evt.Path, Language: language})
		}
	}
}

// Stop stops the underlying watch.
func (l *LiveIndexer) Stop() error {
	return l.manager.StopWatch(l.watchID)
}
