package registry

import (
	"regexp"
	"strings"
)

// toolsVersionPattern validates a swift-tools-version value of the form "X"
// or "X.Y".
var toolsVersionPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseAlternativeLocations parses the alternative-location Link header form:
// each comma-separated entry has a "<URL>" field and a rel="canonical" or
// rel="alternate" field. Unknown rel values and malformed entries are
// skipped silently.
func ParseAlternativeLocations(header string) []AlternateLocation {
	var out []AlternateLocation
	for _, entry := range splitLinkEntries(header) {
		fields := splitLinkFields(entry)
		if len(fields) < 2 {
			continue
		}
		url, ok := extractAngleBracketed(fields[0])
		if !ok {
			continue
		}
		relValue, ok := extractQuotedParam(fields[1], "rel")
		if !ok {
			continue
		}
		var kind LinkKind
		switch relValue {
		case "canonical":
			kind = LinkCanonical
		case "alternate":
			kind = LinkAlternate
		default:
			continue
		}
		out = append(out, AlternateLocation{URL: url, Kind: kind})
	}
	return out
}

// ParseAlternateManifests parses the alternate-manifest Link header form:
// four semicolon-separated fields in any order — the URL, rel="alternate",
// filename="...", and swift-tools-version="X.Y". Entries whose rel is not
// "alternate", or that are missing filename/tools-version, are dropped. A
// syntactically invalid swift-tools-version is a hard failure.
func ParseAlternateManifests(header string) ([]AlternateManifest, error) {
	var out []AlternateManifest
	for _, entry := range splitLinkEntries(header) {
		fields := splitLinkFields(entry)
		if len(fields) == 0 {
			continue
		}

		var (
			url, filename, toolsVersion string
			haveURL, isAlternate, haveFilename, haveToolsVersion bool
		)

		for _, f := range fields {
			if u, ok := extractAngleBracketed(f); ok {
				url = u
				haveURL = true
				continue
			}
			if rel, ok := extractQuotedParam(f, "rel"); ok {
				isAlternate = rel == "alternate"
				continue
			}
			if fn, ok := extractQuotedParam(f, "filename"); ok {
				filename = fn
				haveFilename = true
				continue
			}
			if tv, ok := extractQuotedParam(f, "swift-tools-version"); ok {
				if !toolsVersionPattern.MatchString(tv) {
					return nil, &InvalidResponseError{Reason: "invalid swift-tools-version: " + tv}
				}
				toolsVersion = tv
				haveToolsVersion = true
				continue
			}
		}

		if !haveURL || !isAlternate || !haveFilename || !haveToolsVersion {
			continue
		}
		out = append(out, AlternateManifest{URL: url, Filename: filename, ToolsVersion: toolsVersion})
	}
	return out, nil
}

// splitLinkEntries splits a (possibly comma-joined, possibly multi-line) Link
// header value into its comma-separated entries, respecting commas inside
// angle brackets or quotes.
func splitLinkEntries(header string) []string {
	var entries []string
	var depth int
	var inQuotes bool
	start := 0
	for i, r := range header {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case '"':
			inQuotes = !inQuotes
		case ',':
			if depth == 0 && !inQuotes {
				entries = append(entries, header[start:i])
				start = i + 1
			}
		}
	}
	entries = append(entries, header[start:])
	for i := range entries {
		entries[i] = strings.TrimSpace(entries[i])
	}
	return entries
}

// splitLinkFields splits a single Link entry on semicolons outside of quotes.
func splitLinkFields(entry string) []string {
	var fields []string
	var inQuotes bool
	start := 0
	for i, r := range entry {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ';':
			if !inQuotes {
				fields = append(fields, entry[start:i])
				start = i + 1
			}
		}
	}
	fields = append(fields, entry[start:])
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func extractAngleBracketed(field string) (string, bool) {
	field = strings.TrimSpace(field)
	if !strings.HasPrefix(field, "<") || !strings.HasSuffix(field, ">") {
		return "", false
	}
	return field[1 : len(field)-1], true
}

// extractQuotedParam matches `name="value"` (quotes optional), returning the
// value with its surrounding quotes stripped.
func extractQuotedParam(field, name string) (string, bool) {
	field = strings.TrimSpace(field)
	prefix := name + "="
	if !strings.HasPrefix(field, prefix) {
		return "", false
	}
	value := strings.TrimPrefix(field, prefix)
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		value = value[1 : len(value)-1]
	}
	return value, true
}
