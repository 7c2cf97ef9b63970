package domain

// Fingerprint records the state of one file at snapshot time.
type Fingerprint struct {
	Size    int64  `json:"size"`
	ModTime int64  `json:"mtime"` // UnixNano
	Hash    string `json:"hash"`
}

// Snapshot maps dependency paths to their recorded fingerprints.
type Snapshot struct {
	Files map[string]Fingerprint `json:"files"`
}

// Artifact is the cached product of expensive per-file work.
type Artifact struct {
	Content      []byte   `json:"content"`
	Hash         string   `json:"hash"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// CacheEntry pairs a snapshot with the artifact built from the state it records.
type CacheEntry struct {
	Snapshot Snapshot  `json:"snapshot"`
	Source   *Artifact `json:"source"`
}

// CacheKey returns the key under which a snapshot entry is stored.
func CacheKey(filePath, identifier string) string {
	return filePath + "|" + identifier
}
