package scanner

import "time"

// FileRecord describes a single regular file discovered during enumeration.
// Records are immutable once emitted; later pipeline stages attach their
// results in wrapper types rather than mutating the record.
type FileRecord struct {
	// Path is the absolute, cleaned path of the file.
	Path string

	// Size is the file size in bytes at enumeration time.
	Size int64

	// ModTime is the last modification time at enumeration time.
	ModTime time.Time

	// Ext is the lowercased file extension including the leading dot,
	// or "" when the name has no extension.
	Ext string

	// Root is the configured scan root this file was found under.
	Root string
}
