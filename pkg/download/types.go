// Package download implements the download orchestrator (C6): the strict
// fetch → validate → extract pipeline of spec.md §4.6, built atop pkg/client
// for the HTTP leg and pkg/trust for signature/checksum validation.
package download

import "context"

// Filesystem is the external collaborator the orchestrator uses for every
// filesystem suspension point (spec.md §6): it never touches the OS
// filesystem directly.
type Filesystem interface {
	Exists(path string) (bool, error)
	CreateDirectory(ctx context.Context, path string, recursive bool) error
	RemoveFileTree(ctx context.Context, path string) error
	ReadFileContents(ctx context.Context, path string) ([]byte, error)
	WriteFileContents(ctx context.Context, path string, content []byte) error
	// StripFirstLevel removes the single top-level directory an extracted
	// archive is conventionally wrapped in, moving its contents up one level.
	StripFirstLevel(ctx context.Context, dir string) error
}

// Extractor is the external archive-extraction collaborator (spec.md §6).
type Extractor interface {
	Extract(ctx context.Context, from, to string) error
}

// ChecksumAlgorithm computes a lower-case hex digest of content.
type ChecksumAlgorithm func(content []byte) string
