package trust

import (
	"context"
	"encoding/base64"
	"log/slog"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// SignatureStatusKind is the outcome of the external signature-verification
// primitive (spec.md §6, §4.7).
type SignatureStatusKind int

const (
	// SignatureValid means the signature checks out; Entity is populated.
	SignatureValid SignatureStatusKind = iota
	// SignatureInvalid means the signature bytes do not validate; Reason is populated.
	SignatureInvalid
	// SignatureCertificateInvalid means the certificate chain itself is malformed; Reason is populated.
	SignatureCertificateInvalid
	// SignatureCertificateNotTrusted means verification succeeded but the
	// certificate is not in the trust store.
	SignatureCertificateNotTrusted
)

// SignatureStatus is the result returned by a SignaturePrimitive.
type SignatureStatus struct {
	Kind   SignatureStatusKind
	Entity registry.SigningEntity // the verified signer for SignatureValid; passed to Delegate.OnUntrusted for SignatureCertificateNotTrusted
	Reason string                 // populated for the two invalid kinds
}

// VerifierConfig is opaque configuration passed through to the signature
// primitive (e.g. a trusted-roots bundle). The core never inspects it.
type VerifierConfig struct {
	TrustedRootsPEM []byte
}

// SignaturePrimitive is the external cryptographic-verification collaborator
// (spec.md §6). It is awaited as a suspension point; the core never embeds
// signature-verification logic of its own.
type SignaturePrimitive interface {
	Verify(ctx context.Context, signature, content []byte, format string, config VerifierConfig) (SignatureStatus, error)
}

// knownSignatureFormats is the set of signatureFormat values the primitive
// is expected to understand.
var knownSignatureFormats = map[string]bool{
	"cms-1.0.0": true,
}

// SignatureValidator is C7: it retrieves the signing block from version
// metadata, verifies it against the archive bytes via a SignaturePrimitive,
// and applies the unsigned/untrusted policies.
type SignatureValidator struct {
	Primitive      SignaturePrimitive
	Policy         Policy
	Delegate       Delegate
	VerifierConfig VerifierConfig
}

// Validate runs the full C7 flow for one downloaded archive. On success it
// returns the verified SigningEntity, or nil if the user opted to proceed
// despite a missing signature or untrusted certificate.
func (v *SignatureValidator) Validate(
	ctx context.Context,
	pkg registry.RegistryIdentity,
	version registry.Version,
	archiveBytes []byte,
	meta registry.PackageVersionMetadata,
) (*registry.SigningEntity, error) {
	resource, ok := meta.SourceArchiveResource()
	if !ok {
		return nil, &registry.MissingSourceArchiveError{}
	}

	if resource.Signing == nil {
		underlying := &registry.SourceArchiveNotSignedError{}
		err := applyPromptPolicy(ctx, v.Policy.OnUnsigned, underlying,
			func() { slog.Warn("source archive is not signed", "package", pkg, "version", version) },
			func(ctx context.Context) (bool, error) {
				if v.Delegate == nil {
					return false, nil
				}
				return v.Delegate.OnUnsigned(ctx, pkg, version)
			},
		)
		return nil, err
	}

	signing := resource.Signing
	if signing.SignatureBase64 == "" {
		return nil, &registry.MissingSignatureFormatError{}
	}

	signatureBytes, err := base64.StdEncoding.DecodeString(signing.SignatureBase64)
	if err != nil {
		return nil, &registry.FailedLoadingSignatureError{Cause: err}
	}

	if !knownSignatureFormats[signing.SignatureFormat] {
		return nil, &registry.UnknownSignatureFormatError{Format: signing.SignatureFormat}
	}

	status, err := v.Primitive.Verify(ctx, signatureBytes, archiveBytes, signing.SignatureFormat, v.VerifierConfig)
	if err != nil {
		return nil, &registry.FailedToValidateSignatureError{Cause: err}
	}

	switch status.Kind {
	case SignatureValid:
		entity := status.Entity
		return &entity, nil
	case SignatureInvalid:
		return nil, &registry.InvalidSignatureError{Reason: status.Reason}
	case SignatureCertificateInvalid:
		return nil, &registry.InvalidSigningCertificateError{Reason: status.Reason}
	case SignatureCertificateNotTrusted:
		underlying := &registry.SignerNotTrustedError{}
		err := applyPromptPolicy(ctx, v.Policy.OnUntrustedCertificate, underlying,
			func() { slog.Warn("signer is not trusted", "package", pkg, "version", version) },
			func(ctx context.Context) (bool, error) {
				if v.Delegate == nil {
					return false, nil
				}
				return v.Delegate.OnUntrusted(ctx, pkg, version, status.Entity)
			},
		)
		return nil, err
	default:
		return nil, &registry.FailedToValidateSignatureError{Cause: nil}
	}
}
