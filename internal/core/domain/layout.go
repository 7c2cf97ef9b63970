package domain

import "path/filepath"

const (
	// KilnDirName is the name of the internal project state directory.
	KilnDirName = ".kiln"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// TempDirName is the name of the per-Build temp root.
	TempDirName = "tmp"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "kiln.yaml"

	// PackageFileName is the secondary project root marker.
	PackageFileName = "package.json"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// RootMarkers are the files whose presence marks the project root, in lookup order.
var RootMarkers = []string{ConfigFileName, PackageFileName}

// DefaultKilnPath returns the state directory below root.
func DefaultKilnPath(root string) string {
	return filepath.Join(root, KilnDirName)
}

// DefaultCachePath returns the cache directory below root.
// It joins .kiln and cache.
func DefaultCachePath(root string) string {
	return filepath.Join(root, KilnDirName, CacheDirName)
}

// DefaultTempPath returns the default temp directory of the named Build.
// It joins .kiln, tmp and the build name.
func DefaultTempPath(root, build string) string {
	return filepath.Join(root, KilnDirName, TempDirName, build)
}
