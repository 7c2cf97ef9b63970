package domain

import "go.trai.ch/zerr"

var (
	// ErrConfigNotFound is returned when no kiln.yaml can be found above the working directory.
	ErrConfigNotFound = zerr.New("could not find kiln.yaml")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfigLayer is returned when a configuration layer has an unexpected shape.
	ErrInvalidConfigLayer = zerr.New("invalid configuration layer")

	// ErrProjectRootNotFound is returned when no root marker file exists above the working directory.
	ErrProjectRootNotFound = zerr.New("could not find project root")

	// ErrInvalidMode is returned when the selected mode is not a known mode.
	ErrInvalidMode = zerr.New("unknown mode")

	// ErrMissingBuildName is returned when a build fragment has no name after merging.
	ErrMissingBuildName = zerr.New("build has no name")

	// ErrMissingBuildField is returned when type, mode or target is still undefined after resolution.
	ErrMissingBuildField = zerr.New("build is missing a required field")

	// ErrDuplicateBuildName is returned when two fragments of the same layer share a name.
	ErrDuplicateBuildName = zerr.New("duplicate build name")

	// ErrInvalidOption is returned when an option value is neither a boolean nor an object.
	ErrInvalidOption = zerr.New("option must be a boolean or an object")

	// ErrDecodeBuildFailed is returned when a merged build cannot be decoded into a Build.
	ErrDecodeBuildFailed = zerr.New("failed to decode build configuration")

	// ErrSchemaValidation is returned when a finalized Build fails schema validation.
	ErrSchemaValidation = zerr.New("build failed schema validation")

	// ErrBuildResolutionFailed is returned when one or more Builds could not be resolved.
	ErrBuildResolutionFailed = zerr.New("build resolution failed")

	// ErrTempDirCreateFailed is returned when a Build's temp directory cannot be created.
	ErrTempDirCreateFailed = zerr.New("failed to create temp directory")

	// ErrBuildNotFound is returned when a selector names no known Build.
	ErrBuildNotFound = zerr.New("build not found")

	// ErrNoActiveBuilds is returned when the selector leaves nothing to run.
	ErrNoActiveBuilds = zerr.New("no active builds")

	// ErrInvalidRegistration is returned when a stage handler registration is malformed.
	ErrInvalidRegistration = zerr.New("invalid stage handler registration")

	// ErrStageFailed is returned when a stage handler fails fatally.
	ErrStageFailed = zerr.New("stage handler failed")

	// ErrCompilationFailed is returned when a Build's compilation recorded errors.
	ErrCompilationFailed = zerr.New("compilation failed")

	// ErrBuildPanicked is returned when a stage handler panics.
	ErrBuildPanicked = zerr.New("build panicked")

	// ErrBuildExecutionFailed is returned when at least one Build failed.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrOutputPathOutsideRoot is returned when a dist path is outside the project root.
	ErrOutputPathOutsideRoot = zerr.New("output path is outside project root")

	// ErrFailedToCleanOutput is returned when cleaning a dist directory fails.
	ErrFailedToCleanOutput = zerr.New("failed to clean output directory")

	// ErrStoreCreateFailed is returned when the cache directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create cache directory")

	// ErrStoreReadFailed is returned when a cache blob cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache")

	// ErrStoreUnmarshalFailed is returned when a cache blob cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal cache")

	// ErrStoreMarshalFailed is returned when a cache blob cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal cache")

	// ErrStoreWriteFailed is returned when a cache blob cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrPathStatFailed is returned when stating a path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrSourceReadFailed is returned when a source file cannot be read into the asset set.
	ErrSourceReadFailed = zerr.New("failed to read source file")

	// ErrEmitFailed is returned when an asset cannot be written to dist.
	ErrEmitFailed = zerr.New("failed to emit asset")

	// ErrScriptFailed is returned when a script command fails.
	ErrScriptFailed = zerr.New("script command failed")

	// ErrWatchUnavailable is returned when watch mode is requested without a file watcher.
	ErrWatchUnavailable = zerr.New("watch mode is not available")

	// ErrStatsWriteFailed is returned when the statistics file cannot be written.
	ErrStatsWriteFailed = zerr.New("failed to write statistics")
)
