package trust

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

type stubPrimitive struct {
	status SignatureStatus
	err    error
}

func (s stubPrimitive) Verify(context.Context, []byte, []byte, string, VerifierConfig) (SignatureStatus, error) {
	return s.status, s.err
}

type stubDelegate struct {
	allowUnsigned, allowUntrusted bool
}

func (d stubDelegate) OnUnsigned(context.Context, registry.RegistryIdentity, registry.Version) (bool, error) {
	return d.allowUnsigned, nil
}

func (d stubDelegate) OnUntrusted(context.Context, registry.RegistryIdentity, registry.Version, registry.SigningEntity) (bool, error) {
	return d.allowUntrusted, nil
}

func signedMeta(sigB64, format string) registry.PackageVersionMetadata {
	return registry.PackageVersionMetadata{
		Resources: []registry.Resource{
			{
				Name: registry.SourceArchiveResourceName,
				Signing: &registry.SigningInfo{
					SignatureBase64: sigB64,
					SignatureFormat: format,
				},
			},
		},
	}
}

func unsignedMeta() registry.PackageVersionMetadata {
	return registry.PackageVersionMetadata{
		Resources: []registry.Resource{{Name: registry.SourceArchiveResourceName}},
	}
}

func TestSignatureValidator_MissingSourceArchive(t *testing.T) {
	t.Parallel()
	v := &SignatureValidator{Policy: Policy{OnUnsigned: PolicyError}}
	_, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, nil, registry.PackageVersionMetadata{})
	var want *registry.MissingSourceArchiveError
	require.ErrorAs(t, err, &want)
}

func TestSignatureValidator_Unsigned(t *testing.T) {
	t.Parallel()

	t.Run("error policy fails", func(t *testing.T) {
		t.Parallel()
		v := &SignatureValidator{Policy: Policy{OnUnsigned: PolicyError}}
		_, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, nil, unsignedMeta())
		var want *registry.SourceArchiveNotSignedError
		require.ErrorAs(t, err, &want)
	})

	t.Run("warn policy succeeds with no entity", func(t *testing.T) {
		t.Parallel()
		v := &SignatureValidator{Policy: Policy{OnUnsigned: PolicyWarn}}
		entity, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, nil, unsignedMeta())
		require.NoError(t, err)
		assert.Nil(t, entity)
	})

	t.Run("prompt policy consults delegate", func(t *testing.T) {
		t.Parallel()
		v := &SignatureValidator{Policy: Policy{OnUnsigned: PolicyPrompt}, Delegate: stubDelegate{allowUnsigned: true}}
		entity, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, nil, unsignedMeta())
		require.NoError(t, err)
		assert.Nil(t, entity)
	})

	t.Run("prompt policy without delegate denies", func(t *testing.T) {
		t.Parallel()
		v := &SignatureValidator{Policy: Policy{OnUnsigned: PolicyPrompt}}
		_, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, nil, unsignedMeta())
		var want *registry.SourceArchiveNotSignedError
		require.ErrorAs(t, err, &want)
	})
}

func TestSignatureValidator_UnknownFormat(t *testing.T) {
	t.Parallel()
	meta := signedMeta(base64.StdEncoding.EncodeToString([]byte("sig")), "unknown-format")
	v := &SignatureValidator{Policy: Policy{}}
	_, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, []byte("content"), meta)
	var want *registry.UnknownSignatureFormatError
	require.ErrorAs(t, err, &want)
}

func TestSignatureValidator_UndecodableSignature(t *testing.T) {
	t.Parallel()
	meta := signedMeta("not-valid-base64!!!", "cms-1.0.0")
	v := &SignatureValidator{}
	_, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, []byte("content"), meta)
	var want *registry.FailedLoadingSignatureError
	require.ErrorAs(t, err, &want)
}

func TestSignatureValidator_Valid(t *testing.T) {
	t.Parallel()
	meta := signedMeta(base64.StdEncoding.EncodeToString([]byte("sig")), "cms-1.0.0")
	entity := registry.SigningEntity{Type: registry.SigningEntityRecognized, Name: "Jane Appleseed"}
	v := &SignatureValidator{Primitive: stubPrimitive{status: SignatureStatus{Kind: SignatureValid, Entity: entity}}}
	got, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, []byte("content"), meta)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity, *got)
}

func TestSignatureValidator_CertificateNotTrusted(t *testing.T) {
	t.Parallel()
	meta := signedMeta(base64.StdEncoding.EncodeToString([]byte("sig")), "cms-1.0.0")

	t.Run("error policy fails", func(t *testing.T) {
		t.Parallel()
		v := &SignatureValidator{
			Primitive: stubPrimitive{status: SignatureStatus{Kind: SignatureCertificateNotTrusted}},
			Policy:    Policy{OnUntrustedCertificate: PolicyError},
		}
		_, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, []byte("content"), meta)
		var want *registry.SignerNotTrustedError
		require.ErrorAs(t, err, &want)
	})

	t.Run("silent allow succeeds", func(t *testing.T) {
		t.Parallel()
		v := &SignatureValidator{
			Primitive: stubPrimitive{status: SignatureStatus{Kind: SignatureCertificateNotTrusted}},
			Policy:    Policy{OnUntrustedCertificate: PolicySilentAllow},
		}
		entity, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, []byte("content"), meta)
		require.NoError(t, err)
		assert.Nil(t, entity)
	})
}

func TestSignatureValidator_InvalidSignature(t *testing.T) {
	t.Parallel()
	meta := signedMeta(base64.StdEncoding.EncodeToString([]byte("sig")), "cms-1.0.0")
	v := &SignatureValidator{Primitive: stubPrimitive{status: SignatureStatus{Kind: SignatureInvalid, Reason: "bad digest"}}}
	_, err := v.Validate(context.Background(), registry.RegistryIdentity{}, registry.Version{}, []byte("content"), meta)
	var want *registry.InvalidSignatureError
	require.ErrorAs(t, err, &want)
}
