package safety

import (
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
)

// processApps maps process names (lowercased, extension stripped) to the
// application identifiers the classifier assigns. A browser cache entry is
// treated as in use while its browser runs, because the browser rewrites its
// cache underneath us.
var processApps = map[string]string{
	"chrome":        "chrome",
	"google chrome": "chrome",
	"chromium":      "chrome",
	"firefox":       "firefox",
	"msedge":        "edge",
	"opera":         "opera",
	"discord":       "discord",
	"code":          "vscode",
}

// runningApps returns the set of known applications with at least one live
// process. Errors are logged and treated as "nothing running": a failed
// process scan must not block a cleanup, the exclusive-open probe still
// stands between us and a file a browser holds locked.
func runningApps() map[string]bool {
	procs, err := process.Processes()
	if err != nil {
		logging.L().Warn().Err(err).Msg("process scan failed, skipping running-app detection")
		return nil
	}

	running := make(map[string]bool)
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		name = strings.ToLower(strings.TrimSuffix(name, ".exe"))
		if app, ok := processApps[name]; ok {
			running[app] = true
		}
	}
	return running
}
