package registry

import "regexp"

// manifestToolsVersionPattern extracts the tools-version comment a
// Package.swift manifest is required to carry as its first line, e.g.
// "// swift-tools-version:5.9".
var manifestToolsVersionPattern = regexp.MustCompile(`//\s*swift-tools-version:\s*(\d+(?:\.\d+)?)`)

// ManifestVariant is one entry of getAvailableManifests: the primary
// manifest (Content populated, parsed from the response body) or an
// alternate discovered via the Link header (Content nil).
type ManifestVariant struct {
	ToolsVersion string
	Filename     string
	URL          string  // populated for alternates; empty for the primary manifest
	Content      *string // populated for the primary manifest; nil for alternates
}

// ParseManifestToolsVersion extracts the tools-version comment from manifest
// content. Fails *InvalidResponse* if the body has no recognizable
// tools-version declaration.
func ParseManifestToolsVersion(content string) (string, error) {
	m := manifestToolsVersionPattern.FindStringSubmatch(content)
	if m == nil {
		return "", &InvalidResponseError{Reason: "manifest body has no swift-tools-version declaration"}
	}
	return m[1], nil
}
