package download

import (
	"context"
	"encoding/json"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// sidecarFilename is the name of the published sidecar file written into
// every successfully downloaded package directory (spec.md §6).
const sidecarFilename = ".registry-metadata"

// SidecarSource identifies where a downloaded package came from.
type SidecarSource struct {
	RegistryURL string `json:"registryURL"`
	Scope       string `json:"scope"`
	Name        string `json:"name"`
	Version     string `json:"version"`
}

// SidecarRecord is the `.registry-metadata` sidecar written by step 10 of
// the download pipeline: `(source, metadata, signature?)`, required to
// round-trip byte-for-byte through the Filesystem collaborator.
type SidecarRecord struct {
	Source    SidecarSource                    `json:"source"`
	Metadata  registry.PackageVersionMetadata  `json:"metadata"`
	Signature *registry.SigningEntity          `json:"signature,omitempty"`
}

func writeSidecar(ctx context.Context, fs Filesystem, path string, record SidecarRecord) error {
	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return fs.WriteFileContents(ctx, path, content)
}

// ReadSidecar reads and decodes a `.registry-metadata` file. Exported so
// callers can inspect a previously downloaded package's provenance without
// re-running the orchestrator.
func ReadSidecar(ctx context.Context, fs Filesystem, path string) (*SidecarRecord, error) {
	content, err := fs.ReadFileContents(ctx, path)
	if err != nil {
		return nil, err
	}
	var record SidecarRecord
	if err := json.Unmarshal(content, &record); err != nil {
		return nil, &registry.InvalidResponseError{Reason: err.Error()}
	}
	return &record, nil
}
