// Package watcher tracks filesystem churn under the configured scan roots.
//
// A Watcher subscribes to kernel change notifications for every directory
// below its roots, buffers the events, and batch-inserts them into the
// database on a flush ticker. The recorded history answers "which roots are
// growing, and how fast" without rescanning the tree.
//
// Key features:
//   - Recursive watches (new subdirectories are picked up as they appear)
//   - Batched SQLite inserts (single transaction per tick)
//   - Daemon mode support with PID file management
//   - Graceful shutdown with SIGTERM/SIGINT handling
//
// Example usage:
//
//	st, err := store.New("~/.utac/utac.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer st.Close()
//
//	w, err := watcher.New(st, cfg.ScanPaths)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Start watching in foreground
//	if err := w.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
//
//	// Or start as daemon
//	if err := w.StartDaemon("/tmp/utac.pid", "/tmp/utac.log"); err != nil {
//		log.Fatal(err)
//	}
package watcher
