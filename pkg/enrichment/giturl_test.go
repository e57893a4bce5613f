package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

func TestDeriveAPIURL_ColonSeparatedShape(t *testing.T) {
	t.Parallel()
	got, err := DeriveAPIURL("github.com:stacklok/toolhive.git")
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/repos/stacklok/toolhive", got)
}

func TestDeriveAPIURL_SlashSeparatedShape(t *testing.T) {
	t.Parallel()
	got, err := DeriveAPIURL("github.com/stacklok/toolhive")
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/repos/stacklok/toolhive", got)
}

func TestDeriveAPIURL_InvalidShape(t *testing.T) {
	t.Parallel()
	_, err := DeriveAPIURL("not a url at all")
	var want *registry.InvalidGitURLError
	require.ErrorAs(t, err, &want)
}
