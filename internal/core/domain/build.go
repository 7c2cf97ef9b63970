package domain

import "slices"

// BuildType classifies what a Build produces.
type BuildType string

const (
	// TypeApp is a node application bundle.
	TypeApp BuildType = "app"
	// TypeWebapp is a browser, webview or webworker bundle.
	TypeWebapp BuildType = "webapp"
	// TypeModule is a library module bundle.
	TypeModule BuildType = "module"
	// TypeTests is a test bundle.
	TypeTests BuildType = "tests"
	// TypeTypes is a type-declaration bundle other builds may depend on.
	TypeTypes BuildType = "types"
	// TypeJsdoc is a documentation build.
	TypeJsdoc BuildType = "jsdoc"
	// TypeScript runs an external command instead of bundling.
	TypeScript BuildType = "script"
)

// BuildTypes lists every valid build type.
var BuildTypes = []BuildType{TypeApp, TypeWebapp, TypeModule, TypeTests, TypeTypes, TypeJsdoc, TypeScript}

// Valid reports whether t is a known build type.
func (t BuildType) Valid() bool {
	return slices.Contains(BuildTypes, t)
}

// Mode is a named configuration profile applied as an override layer.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	ModeTest        Mode = "test"
	ModeNone        Mode = "none"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeDevelopment, ModeProduction, ModeTest, ModeNone}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return slices.Contains(Modes, m)
}

// Target is the platform a Build is produced for.
type Target string

const (
	TargetNode             Target = "node"
	TargetWeb              Target = "web"
	TargetWebworker        Target = "webworker"
	TargetElectronMain     Target = "electron-main"
	TargetElectronRenderer Target = "electron-renderer"
)

// Targets lists every valid target.
var Targets = []Target{TargetNode, TargetWeb, TargetWebworker, TargetElectronMain, TargetElectronRenderer}

// Valid reports whether t is a known target.
func (t Target) Valid() bool {
	return slices.Contains(Targets, t)
}

// Paths holds the directories of a Build. All of them are absolute after resolution.
type Paths struct {
	Base string `json:"base" yaml:"base"`
	Src  string `json:"src" yaml:"src"`
	Dist string `json:"dist" yaml:"dist"`
	Ctx  string `json:"ctx" yaml:"ctx"`
	Temp string `json:"temp" yaml:"temp"`
}

// LogConfig controls how a Build reports to the console.
type LogConfig struct {
	Level     int  `json:"level" yaml:"level"`
	Color     bool `json:"color" yaml:"color"`
	Timestamp bool `json:"timestamp" yaml:"timestamp"`
}

// SourceConfig describes the source language of a Build.
type SourceConfig struct {
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	Config   string `json:"config,omitempty" yaml:"config,omitempty"`
}

// EntryPoint is a named bundle entry. DependOn names another Build the entry needs first.
type EntryPoint struct {
	Import   string `json:"import" yaml:"import"`
	DependOn string `json:"dependOn,omitempty" yaml:"dependOn,omitempty"`
}

// Build is one independently configured pipeline target.
type Build struct {
	Name    string                `json:"name" yaml:"name"`
	Type    BuildType             `json:"type" yaml:"type"`
	Mode    Mode                  `json:"mode" yaml:"mode"`
	Target  Target                `json:"target" yaml:"target"`
	Paths   Paths                 `json:"paths" yaml:"paths"`
	Options Options               `json:"options" yaml:"options"`
	Log     LogConfig             `json:"log" yaml:"log"`
	Alias   map[string]string     `json:"alias,omitempty" yaml:"alias,omitempty"`
	Source  SourceConfig          `json:"source" yaml:"source"`
	Entry   map[string]EntryPoint `json:"entry,omitempty" yaml:"entry,omitempty"`
	Wait    []WaitItem            `json:"wait,omitempty" yaml:"wait,omitempty"`
	Script  []string              `json:"script,omitempty" yaml:"script,omitempty"`
	VSCode  map[string]any        `json:"vscode,omitempty" yaml:"vscode,omitempty"`

	Active bool `json:"active" yaml:"active"`
	Auto   bool `json:"auto" yaml:"auto"`
	Debug  bool `json:"debug" yaml:"debug"`
}

// DependsOn reports whether the Build declares a dependency on the named Build,
// either through an entry marker or a wait item.
func (b *Build) DependsOn(name string) bool {
	return b.HasEntryDependency(name) || b.WaitsOn(name)
}

// HasEntryDependency reports whether any entry point names the given Build in DependOn.
func (b *Build) HasEntryDependency(name string) bool {
	for _, e := range b.Entry {
		if e.DependOn == name {
			return true
		}
	}
	return false
}

// WaitsOn reports whether a wait item targets the given Build.
func (b *Build) WaitsOn(name string) bool {
	for _, w := range b.Wait {
		if w.Target == name {
			return true
		}
	}
	return false
}

// DoneEvents returns the completion signals the Build emits when it finishes cleanly.
func (b *Build) DoneEvents() []string {
	events := []string{DoneEvent(b.Name)}
	if string(b.Type) != "" && string(b.Type) != b.Name {
		events = append(events, DoneEvent(string(b.Type)))
	}
	return events
}

// DoneEvent returns the completion signal name for a build name or type.
func DoneEvent(name string) string {
	return name + "_done"
}
