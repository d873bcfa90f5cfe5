// Package watcher provides the real-time file system watching `codeindex
// watch` builds its debounced rebuild loop on, with gitignore-aware
// filtering so edits to ignored files never trigger a rebuild.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: Polling when an fsnotify watcher cannot be created
//
// Events are debounced to coalesce rapid changes from IDEs and git operations,
// and filtered against .gitignore patterns to skip irrelevant files.
//
// Usage:
//
//	opts := watcher.DefaultOptions()
//	w, err := watcher.NewHybridWatcher(opts)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	// Start blocks until Stop is called or ctx is cancelled.
//	go func() { _ = w.Start(ctx, "/path/to/project") }()
//
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        switch event.Operation {
//	        case watcher.OpCreate:
//	            // Handle file creation
//	        case watcher.OpModify:
//	            // Handle file modification
//	        case watcher.OpDelete:
//	            // Handle file deletion
//	        }
//	    }
//	}
package watcher
