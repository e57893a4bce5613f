// Package trust implements the signature validator (C7) and the two
// Trust-On-First-Use validators (C8) described in spec.md §4.7-§4.8.
package trust

import (
	"context"
	"fmt"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// PromptPolicy governs how the signature validator reacts to an unsigned
// archive or an untrusted certificate.
type PromptPolicy int

const (
	// PolicyPrompt asks the Delegate and proceeds only on a true answer.
	PolicyPrompt PromptPolicy = iota
	// PolicyError always surfaces the underlying error.
	PolicyError
	// PolicyWarn logs and proceeds.
	PolicyWarn
	// PolicySilentAllow proceeds without comment.
	PolicySilentAllow
)

// ParsePromptPolicy parses the four policy names used in configuration.
func ParsePromptPolicy(s string) (PromptPolicy, error) {
	switch s {
	case "Prompt":
		return PolicyPrompt, nil
	case "Error":
		return PolicyError, nil
	case "Warn":
		return PolicyWarn, nil
	case "SilentAllow":
		return PolicySilentAllow, nil
	default:
		return 0, fmt.Errorf("unknown prompt policy %q", s)
	}
}

// ChecksumPolicyMode governs the severity of a checksum TOFU mismatch.
type ChecksumPolicyMode int

const (
	// ChecksumStrict fails the operation on a checksum mismatch.
	ChecksumStrict ChecksumPolicyMode = iota
	// ChecksumWarn logs and proceeds on a checksum mismatch.
	ChecksumWarn
)

// ParseChecksumPolicyMode parses the two checksum-policy-mode names.
func ParseChecksumPolicyMode(s string) (ChecksumPolicyMode, error) {
	switch s {
	case "Strict":
		return ChecksumStrict, nil
	case "Warn":
		return ChecksumWarn, nil
	default:
		return 0, fmt.Errorf("unknown checksum policy mode %q", s)
	}
}

// ChecksumPolicyState turns checksum TOFU on or off entirely.
type ChecksumPolicyState int

const (
	// ChecksumEnabled performs checksum TOFU.
	ChecksumEnabled ChecksumPolicyState = iota
	// ChecksumDisabled skips checksum TOFU entirely.
	ChecksumDisabled
)

// ParseChecksumPolicyState parses the two checksum-policy-state names.
func ParseChecksumPolicyState(s string) (ChecksumPolicyState, error) {
	switch s {
	case "Enabled":
		return ChecksumEnabled, nil
	case "Disabled":
		return ChecksumDisabled, nil
	default:
		return 0, fmt.Errorf("unknown checksum policy state %q", s)
	}
}

// Policy bundles the four policy knobs consulted by the trust pipeline.
type Policy struct {
	OnUnsigned             PromptPolicy
	OnUntrustedCertificate PromptPolicy
	ChecksumPolicyMode     ChecksumPolicyMode
	ChecksumPolicyState    ChecksumPolicyState
}

// Delegate is consulted when a PromptPolicy of PolicyPrompt needs a human
// (or automated) decision about whether to proceed despite an unsigned
// archive or an untrusted certificate. A nil Delegate is treated as "do not
// continue" for both hooks, per the Design Notes default.
type Delegate interface {
	OnUnsigned(ctx context.Context, pkg registry.RegistryIdentity, version registry.Version) (bool, error)
	OnUntrusted(ctx context.Context, pkg registry.RegistryIdentity, version registry.Version, entity registry.SigningEntity) (bool, error)
}

// applyPromptPolicy implements the shared policy-application algorithm of
// §4.7: Prompt asks the delegate, Error surfaces underlyingErr, Warn logs
// and allows, SilentAllow allows silently.
func applyPromptPolicy(
	ctx context.Context,
	policy PromptPolicy,
	underlyingErr error,
	warn func(),
	ask func(ctx context.Context) (bool, error),
) error {
	switch policy {
	case PolicyError:
		return underlyingErr
	case PolicyWarn:
		warn()
		return nil
	case PolicySilentAllow:
		return nil
	case PolicyPrompt:
		if ask == nil {
			return &registry.MissingConfigurationError{Details: "policy is Prompt but no delegate is configured"}
		}
		ok, err := ask(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return underlyingErr
	default:
		return underlyingErr
	}
}
