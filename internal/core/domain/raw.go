package domain

// RawConfig is the unvalidated, layered configuration tree.
// None of its layers is ever validated against the Build schema on its own.
type RawConfig struct {
	// Root holds the root-level base keys (paths, options, log, alias, source, vscode).
	Root map[string]any
	// Modes holds each mode block's base keys, keyed by mode name.
	Modes map[string]map[string]any
	// Builds holds the root-defined build fragments, in declaration order.
	Builds []map[string]any
	// ModeBuilds holds the mode-defined build fragments, keyed by mode name.
	ModeBuilds map[string][]map[string]any
}

// BaseKeys are the keys extracted from the root and mode layers as the shared base of every Build.
var BaseKeys = []string{"paths", "options", "log", "alias", "source", "vscode"}
