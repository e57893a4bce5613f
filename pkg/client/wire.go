package client

// Wire shapes decoded from registry JSON bodies. These mirror the Swift
// package registry v1 JSON forms referenced by spec.md §6; they are kept
// unexported because callers only ever see the pkg/registry projections.

type releaseEntryWire struct {
	URL     string          `json:"url"`
	Problem *releaseProblem `json:"problem,omitempty"`
}

type releaseProblem struct {
	Status int `json:"status"`
}

type releasesWire struct {
	Releases map[string]releaseEntryWire `json:"releases"`
}

type signingWire struct {
	SignatureBase64 string `json:"signature"`
	SignatureFormat string `json:"signatureFormat"`
}

type resourceWire struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Checksum *string      `json:"checksum,omitempty"`
	Signing  *signingWire `json:"signing,omitempty"`
}

type versionMetadataWire struct {
	Resources []resourceWire `json:"resources"`
	Metadata  struct {
		LicenseURL     *string  `json:"licenseURL,omitempty"`
		ReadmeURL      *string  `json:"readmeURL,omitempty"`
		RepositoryURLs []string `json:"repositoryURLs,omitempty"`
		Author         *string  `json:"author,omitempty"`
		Description    *string  `json:"description,omitempty"`
	} `json:"metadata"`
}

type identifiersWire struct {
	Identifiers []string `json:"identifiers"`
}
