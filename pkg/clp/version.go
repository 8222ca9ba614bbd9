// Package clp is a constraint logic programming engine: depth-first search
// over reversible finite-domain variables, with incremental bound propagation
// and on-the-fly merging of cycles in the propagation graph.
//
// Version: 0.1.0
//
// A Manager drives the search. Goals (And, Or, constraints and user goals)
// are pushed on its goal stack; Or goals create choice points; every change to
// search state goes through the Manager's trail so that backtracking can undo
// it exactly. Failure is an *Inconsistency error, optionally labeled to
// target a specific choice point.
//
// A Manager is single-threaded. Parallel work means independent Managers on
// independent copies of a problem.
package clp

import "runtime"

// Version represents the current version of the engine.
const Version = "0.1.0"

// VersionInfo provides detailed version information.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// GetVersionInfo returns detailed version information. Commit and date are
// filled in by the caller when known (the CLI sets them from linker flags).
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
	}
}
