package registry

import "fmt"

// Input errors. These are recovered only by the caller and are raised before
// any network I/O takes place.

// InvalidPackageIdentityError is returned when a scope or name fails the
// shared identity pattern.
type InvalidPackageIdentityError struct {
	Scope, Name, Reason string
}

func (e *InvalidPackageIdentityError) Error() string {
	return fmt.Sprintf("invalid package identity %s/%s: %s", e.Scope, e.Name, e.Reason)
}

// InvalidURLError is returned when a registry or request URL cannot be parsed.
type InvalidURLError struct {
	URL string
}

func (e *InvalidURLError) Error() string { return fmt.Sprintf("invalid URL: %s", e.URL) }

// InvalidGitURLError is returned by the metadata-enrichment provider when a
// source-control URL does not match either of the two supported shapes.
type InvalidGitURLError struct {
	URL string
}

func (e *InvalidGitURLError) Error() string { return fmt.Sprintf("invalid git URL: %s", e.URL) }

// RegistryNotConfiguredError is returned when no registry is configured for
// the resolved scope.
type RegistryNotConfiguredError struct {
	Scope string
}

func (e *RegistryNotConfiguredError) Error() string {
	return fmt.Sprintf("no registry configured for scope %q", e.Scope)
}

// PathAlreadyExistsError is returned when a download destination already
// exists on disk.
type PathAlreadyExistsError struct {
	Path string
}

func (e *PathAlreadyExistsError) Error() string {
	return fmt.Sprintf("path already exists: %s", e.Path)
}

// Transport errors. Each wraps a cause and identifies the registry/package/
// version the failing request targeted.

// FailedRetrievingReleasesError wraps a transport failure for getPackageMetadata.
type FailedRetrievingReleasesError struct {
	Registry Registry
	Package  RegistryIdentity
	Cause    error
}

func (e *FailedRetrievingReleasesError) Error() string {
	return fmt.Sprintf("failed retrieving releases for %s from %s: %v", e.Package, e.Registry.URL, e.Cause)
}
func (e *FailedRetrievingReleasesError) Unwrap() error { return e.Cause }

// FailedRetrievingReleaseInfoError wraps a transport failure for
// getPackageVersionMetadata / getAvailableManifests / getManifestContent.
type FailedRetrievingReleaseInfoError struct {
	Registry Registry
	Package  RegistryIdentity
	Version  Version
	Cause    error
}

func (e *FailedRetrievingReleaseInfoError) Error() string {
	return fmt.Sprintf("failed retrieving release info for %s@%s from %s: %v", e.Package, e.Version, e.Registry.URL, e.Cause)
}
func (e *FailedRetrievingReleaseInfoError) Unwrap() error { return e.Cause }

// FailedDownloadingSourceArchiveError wraps any failure (transport, trust,
// extraction, filesystem) arising during the download pipeline.
type FailedDownloadingSourceArchiveError struct {
	Registry Registry
	Package  RegistryIdentity
	Version  Version
	Cause    error
}

func (e *FailedDownloadingSourceArchiveError) Error() string {
	return fmt.Sprintf("failed downloading source archive for %s@%s from %s: %v", e.Package, e.Version, e.Registry.URL, e.Cause)
}
func (e *FailedDownloadingSourceArchiveError) Unwrap() error { return e.Cause }

// FailedIdentityLookupError wraps a transport failure for lookupIdentities.
type FailedIdentityLookupError struct {
	Registry Registry
	SCMURL   string
	Cause    error
}

func (e *FailedIdentityLookupError) Error() string {
	return fmt.Sprintf("failed identity lookup for %s against %s: %v", e.SCMURL, e.Registry.URL, e.Cause)
}
func (e *FailedIdentityLookupError) Unwrap() error { return e.Cause }

// FailedPublishingError wraps a transport failure for publish.
type FailedPublishingError struct {
	Registry Registry
	Package  RegistryIdentity
	Version  Version
	Cause    error
}

func (e *FailedPublishingError) Error() string {
	return fmt.Sprintf("failed publishing %s@%s to %s: %v", e.Package, e.Version, e.Registry.URL, e.Cause)
}
func (e *FailedPublishingError) Unwrap() error { return e.Cause }

// Protocol errors.

// InvalidResponseError is returned when a response body cannot be parsed in
// the shape the operation expects.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string { return fmt.Sprintf("invalid response: %s", e.Reason) }

// InvalidResponseStatusError is returned when a response status is not in the
// operation's expected set and could not be mapped to a more specific error.
type InvalidResponseStatusError struct {
	Expected []int
	Actual   int
}

func (e *InvalidResponseStatusError) Error() string {
	return fmt.Sprintf("invalid response status: expected one of %v, got %d", e.Expected, e.Actual)
}

// InvalidContentVersionError is returned when the Content-Version header does
// not match the negotiated API version.
type InvalidContentVersionError struct {
	Expected, Actual string
}

func (e *InvalidContentVersionError) Error() string {
	return fmt.Sprintf("invalid content version: expected %q, got %q", e.Expected, e.Actual)
}

// InvalidContentTypeError is returned when the Content-Type header does not
// match the expected media type for the operation.
type InvalidContentTypeError struct {
	Expected, Actual string
}

func (e *InvalidContentTypeError) Error() string {
	return fmt.Sprintf("invalid content type: expected %q, got %q", e.Expected, e.Actual)
}

// Availability errors.

// RegistryNotAvailableError short-circuits an operation when the availability
// gate reports the registry as unavailable.
type RegistryNotAvailableError struct {
	Registry Registry
}

func (e *RegistryNotAvailableError) Error() string {
	return fmt.Sprintf("registry %s is not available", e.Registry.URL)
}

// UnauthorizedError maps a 401 response.
type UnauthorizedError struct{ Registry Registry }

func (e *UnauthorizedError) Error() string { return fmt.Sprintf("unauthorized by %s", e.Registry.URL) }

// ForbiddenError maps a 403 response.
type ForbiddenError struct{ Registry Registry }

func (e *ForbiddenError) Error() string { return fmt.Sprintf("forbidden by %s", e.Registry.URL) }

// AuthenticationMethodNotSupportedError maps a 501 response.
type AuthenticationMethodNotSupportedError struct{ Registry Registry }

func (e *AuthenticationMethodNotSupportedError) Error() string {
	return fmt.Sprintf("authentication method not supported by %s", e.Registry.URL)
}

// ServerError maps a 500/502/503 response, or any response body that parses
// as application/problem+json.
type ServerError struct {
	Code   int
	Detail string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Detail)
}

// MissingPublishingLocationError is returned when publish receives a 202
// response with no Location header to report as the processing status URL.
type MissingPublishingLocationError struct{}

func (*MissingPublishingLocationError) Error() string {
	return "202 response is missing a Location header"
}

// Not-found errors.

// PackageNotFoundError maps a 404 from getPackageMetadata.
type PackageNotFoundError struct{ Package RegistryIdentity }

func (e *PackageNotFoundError) Error() string { return fmt.Sprintf("package not found: %s", e.Package) }

// PackageVersionNotFoundError maps a 404 from any per-version operation.
type PackageVersionNotFoundError struct {
	Package RegistryIdentity
	Version Version
}

func (e *PackageVersionNotFoundError) Error() string {
	return fmt.Sprintf("package version not found: %s@%s", e.Package, e.Version)
}

// Trust errors. These are authoritative: they are never retried.

// MissingSourceArchiveError is returned when a package-version has no
// source-archive resource.
type MissingSourceArchiveError struct{}

func (*MissingSourceArchiveError) Error() string { return "package version has no source archive" }

// SourceArchiveMissingChecksumError is returned when the source-archive
// resource has no checksum to validate against.
type SourceArchiveMissingChecksumError struct{}

func (*SourceArchiveMissingChecksumError) Error() string {
	return "source archive resource is missing a checksum"
}

// SourceArchiveNotSignedError is returned when the source-archive resource
// carries no signing block.
type SourceArchiveNotSignedError struct{}

func (*SourceArchiveNotSignedError) Error() string { return "source archive is not signed" }

// MissingSignatureFormatError is returned when a signature format is required
// but absent (either on download, when the signing block carries no
// signatureBase64, or on publish, when a signature is supplied without a
// format).
type MissingSignatureFormatError struct{}

func (*MissingSignatureFormatError) Error() string { return "missing signature format" }

// UnknownSignatureFormatError is returned when signatureFormat names a format
// the signature primitive does not recognize.
type UnknownSignatureFormatError struct{ Format string }

func (e *UnknownSignatureFormatError) Error() string {
	return fmt.Sprintf("unknown signature format: %s", e.Format)
}

// InvalidSignatureError maps the signature primitive's Invalid(reason) result.
type InvalidSignatureError struct{ Reason string }

func (e *InvalidSignatureError) Error() string { return fmt.Sprintf("invalid signature: %s", e.Reason) }

// InvalidSigningCertificateError maps CertificateInvalid(reason).
type InvalidSigningCertificateError struct{ Reason string }

func (e *InvalidSigningCertificateError) Error() string {
	return fmt.Sprintf("invalid signing certificate: %s", e.Reason)
}

// SignerNotTrustedError maps CertificateNotTrusted, after policy application
// determines the error should be surfaced rather than suppressed.
type SignerNotTrustedError struct{}

func (*SignerNotTrustedError) Error() string { return "signer is not trusted" }

// FailedLoadingSignatureError is returned when signatureBase64 cannot be
// base64-decoded.
type FailedLoadingSignatureError struct{ Cause error }

func (e *FailedLoadingSignatureError) Error() string {
	return fmt.Sprintf("failed loading signature: %v", e.Cause)
}
func (e *FailedLoadingSignatureError) Unwrap() error { return e.Cause }

// FailedToValidateSignatureError wraps an unexpected error from the signature
// verification primitive itself.
type FailedToValidateSignatureError struct{ Cause error }

func (e *FailedToValidateSignatureError) Error() string {
	return fmt.Sprintf("failed to validate signature: %v", e.Cause)
}
func (e *FailedToValidateSignatureError) Unwrap() error { return e.Cause }

// MissingConfigurationError is returned when a trust policy requires
// configuration (e.g. a delegate) that was not supplied.
type MissingConfigurationError struct{ Details string }

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Details)
}

// ChecksumChangedError is returned by checksum TOFU under strict policy when
// a later checksum does not match the one recorded on first use.
type ChecksumChangedError struct {
	Latest, Previous string
}

func (e *ChecksumChangedError) Error() string {
	return fmt.Sprintf("checksum changed: latest %s, previously recorded %s", e.Latest, e.Previous)
}

// InvalidChecksumError is returned when a checksum cannot be computed or
// parsed in the expected hex shape.
type InvalidChecksumError struct{ Reason string }

func (e *InvalidChecksumError) Error() string { return fmt.Sprintf("invalid checksum: %s", e.Reason) }

// SigningEntityForPackageChangedError is returned by signing-entity TOFU when
// a new signing entity is observed for a package that already has one on
// record.
type SigningEntityForPackageChangedError struct {
	Package           RegistryIdentity
	Latest, Recorded SigningEntity
}

func (e *SigningEntityForPackageChangedError) Error() string {
	return fmt.Sprintf("signing entity for package %s changed: latest %+v, recorded %+v", e.Package, e.Latest, e.Recorded)
}

// SigningEntityForReleaseChangedError is the per-version flavour of the above.
type SigningEntityForReleaseChangedError struct {
	Package          RegistryIdentity
	Version          Version
	Latest, Recorded SigningEntity
}

func (e *SigningEntityForReleaseChangedError) Error() string {
	return fmt.Sprintf("signing entity for release %s@%s changed: latest %+v, recorded %+v", e.Package, e.Version, e.Latest, e.Recorded)
}
