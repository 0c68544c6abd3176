// Package model defines the data structures shared by the scanning layers.
package model

import "time"

// Path represents a file system path.
type Path string

// DocumentInfo describes a document on local storage.
type DocumentInfo struct {
	Path        Path
	Exists      bool
	Size        int64
	ModTime     time.Time
	Fingerprint string // stable for an unmodified file, changes when it is rewritten
}

// ScanStats reports how much of a document a query touched.
type ScanStats struct {
	BytesRead       int64
	DocumentSize    int64
	ArrayOffset     int64 // offset of the target array's key token, -1 when absent
	ElementsScanned int
	CorruptElements int
	Duration        time.Duration
}
