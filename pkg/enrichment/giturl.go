package enrichment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// scmURLPattern matches the two supported source-control URL shapes of
// spec.md §4.9: "host:owner/repo[.git]" and "host/owner/repo[.git]".
var scmURLPattern = regexp.MustCompile(`^([a-zA-Z0-9.-]+)[:/]([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?$`)

// DeriveAPIURL derives the code-hosting REST API URL for a repository from
// its source-control URL. Fails *InvalidGitURL* if scmURL matches neither
// supported shape.
func DeriveAPIURL(scmURL string) (string, error) {
	m := scmURLPattern.FindStringSubmatch(strings.TrimSpace(scmURL))
	if m == nil {
		return "", &registry.InvalidGitURLError{URL: scmURL}
	}
	host, owner, repo := m[1], m[2], m[3]
	return fmt.Sprintf("https://api.%s/repos/%s/%s", host, owner, repo), nil
}
