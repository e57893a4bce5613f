package download

import (
	"context"
	"path/filepath"

	"github.com/stacklok/pkgregistry-client/pkg/client"
	"github.com/stacklok/pkgregistry-client/pkg/registry"
	"github.com/stacklok/pkgregistry-client/pkg/trust"
)

// Orchestrator is C6: it composes the registry protocol engine, the trust
// pipeline, and a filesystem/extractor pair into the eleven-step download
// pipeline of spec.md §4.6.
type Orchestrator struct {
	Client                 *client.Client
	SignatureValidator     *trust.SignatureValidator
	ChecksumValidator      *trust.ChecksumValidator
	SigningEntityValidator *trust.SigningEntityValidator
	Filesystem             Filesystem
	Extractor              Extractor
	Checksum               ChecksumAlgorithm
}

// Download runs the full pipeline and returns the verified signing entity
// (nil if the user's policy allowed proceeding without one). destination
// must not already exist.
func (o *Orchestrator) Download(
	ctx context.Context,
	scope, name string,
	version registry.Version,
	destination string,
	opts client.OperationOptions,
	progress client.ProgressFunc,
) (*registry.SigningEntity, error) {
	id, err := registry.ParseRegistryIdentity(scope, name)
	if err != nil {
		return nil, err
	}
	var reg registry.Registry
	wrap := func(cause error) error {
		return &registry.FailedDownloadingSourceArchiveError{Registry: reg, Package: id, Version: version, Cause: cause}
	}

	// Step 1: fetch version metadata (via C5 + C4).
	meta, err := o.Client.GetPackageVersionMetadata(ctx, scope, name, version, opts)
	if err != nil {
		return nil, wrap(err)
	}
	reg = meta.Registry

	// Step 2: prepare filesystem.
	zipPath := destination + ".zip"
	if err := o.prepareFilesystem(ctx, destination, zipPath); err != nil {
		return nil, wrap(err)
	}
	// Step 11: regardless of outcome, remove the temporary zip.
	defer func() { _ = o.Filesystem.RemoveFileTree(ctx, zipPath) }()

	// Step 3: streaming download; step 4 (content-version/type) is
	// validated inside FetchSourceArchive itself.
	_, reg, err = o.Client.FetchSourceArchive(ctx, scope, name, version, zipPath, opts, progress)
	if err != nil {
		return nil, wrap(err)
	}

	// Step 5: compute checksum of the downloaded file.
	archiveBytes, err := o.Filesystem.ReadFileContents(ctx, zipPath)
	if err != nil {
		return nil, wrap(err)
	}
	checksum := o.Checksum(archiveBytes)

	// Step 6: signature validation MUST precede checksum verification MUST
	// precede extraction (spec.md §3 invariants).
	entity, err := o.SignatureValidator.Validate(ctx, id, version, archiveBytes, *meta)
	if err != nil {
		return nil, wrap(err)
	}

	// Step 7: checksum TOFU.
	if err := o.ChecksumValidator.Observe(ctx, id, version, checksum); err != nil {
		return nil, wrap(err)
	}
	if err := o.SigningEntityValidator.ObservePackage(ctx, id, entity); err != nil {
		return nil, wrap(err)
	}
	if err := o.SigningEntityValidator.ObserveRelease(ctx, id, version, entity); err != nil {
		return nil, wrap(err)
	}

	// Step 8: re-check destination absence (the pipeline is asynchronous);
	// create it; extract.
	if err := o.extractTo(ctx, zipPath, destination); err != nil {
		return nil, wrap(err)
	}

	// Step 9: strip the first top-level directory from the extracted tree.
	if err := o.Filesystem.StripFirstLevel(ctx, destination); err != nil {
		_ = o.Filesystem.RemoveFileTree(ctx, destination)
		return nil, wrap(err)
	}

	// Step 10: write the sidecar.
	record := SidecarRecord{
		Source: SidecarSource{
			RegistryURL: reg.URL,
			Scope:       id.Scope,
			Name:        id.Name,
			Version:     version.String(),
		},
		Metadata:  *meta,
		Signature: entity,
	}
	if err := writeSidecar(ctx, o.Filesystem, filepath.Join(destination, sidecarFilename), record); err != nil {
		_ = o.Filesystem.RemoveFileTree(ctx, destination)
		return nil, wrap(err)
	}

	return entity, nil
}

func (o *Orchestrator) prepareFilesystem(ctx context.Context, destination, zipPath string) error {
	parent := filepath.Dir(destination)
	if exists, err := o.Filesystem.Exists(parent); err != nil {
		return err
	} else if !exists {
		if err := o.Filesystem.CreateDirectory(ctx, parent, true); err != nil {
			return err
		}
	}

	if exists, err := o.Filesystem.Exists(zipPath); err != nil {
		return err
	} else if exists {
		if err := o.Filesystem.RemoveFileTree(ctx, zipPath); err != nil {
			return err
		}
	}

	return o.assertDestinationAbsent(destination)
}

func (o *Orchestrator) assertDestinationAbsent(destination string) error {
	exists, err := o.Filesystem.Exists(destination)
	if err != nil {
		return err
	}
	if exists {
		return &registry.PathAlreadyExistsError{Path: destination}
	}
	return nil
}

func (o *Orchestrator) extractTo(ctx context.Context, zipPath, destination string) error {
	if err := o.assertDestinationAbsent(destination); err != nil {
		return err
	}
	if err := o.Filesystem.CreateDirectory(ctx, destination, true); err != nil {
		return err
	}
	if err := o.Extractor.Extract(ctx, zipPath, destination); err != nil {
		_ = o.Filesystem.RemoveFileTree(ctx, destination)
		return err
	}
	return nil
}
