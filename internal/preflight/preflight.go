package preflight

import (
	"os"
	"strings"

	"ipcpair/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	dir := strings.TrimSpace(cfg.Rendezvous.Dir)
	if dir == "" {
		dir = os.TempDir()
	}

	results := []Result{
		CheckDirectoryAccess("Rendezvous directory", dir),
		CheckRendezvous(dir, cfg.Rendezvous.Name),
		CheckChannel(),
	}
	if executable := strings.TrimSpace(cfg.Session.ChildExecutable); executable != "" {
		results = append(results, CheckExecutable("Child executable", executable))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
