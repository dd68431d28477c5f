package bridgegen

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var versionDigitsRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)*`)

// ParseVersion extracts a canonical semantic version ("v22.1.1") from an
// installation directory name such as "CPLEX_Studio2211". It returns "" when
// the name carries no recognizable version.
//
// Dotted versions are taken as written. Compact versions follow the vendor's
// directory naming: a two digit major when it starts with 1 or 2 (12, 20,
// 22), where 12.10 is spelled "1210", and one digit per remaining component.
func ParseVersion(segment string) string {
	matches := versionDigitsRe.FindAllString(segment, -1)
	if len(matches) == 0 {
		return ""
	}
	digits := matches[len(matches)-1]

	var parts []string
	if strings.Contains(digits, ".") {
		parts = strings.Split(digits, ".")
	} else {
		parts = splitCompactVersion(digits)
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for i, p := range parts {
		parts[i] = strings.TrimLeft(p, "0")
		if parts[i] == "" {
			parts[i] = "0"
		}
	}

	v := semver.Canonical("v" + strings.Join(parts, "."))
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

func splitCompactVersion(digits string) []string {
	if len(digits) < 3 || (digits[0] != '1' && digits[0] != '2') {
		return []string{digits}
	}

	parts := []string{digits[:2]}
	rest := digits[2:]
	if parts[0] == "12" && strings.HasPrefix(rest, "10") {
		parts = append(parts, "10")
		rest = rest[2:]
	}
	for _, r := range rest {
		parts = append(parts, string(r))
	}
	return parts
}

// compareVersions orders two installation version keys. Parsed versions sort
// above unparsed ones; unparsed ones fall back to comparing the raw directory
// segment.
func compareVersions(a, b *Installation) int {
	switch {
	case a.Version != "" && b.Version != "":
		return semver.Compare(a.Version, b.Version)
	case a.Version != "":
		return 1
	case b.Version != "":
		return -1
	default:
		return strings.Compare(a.VersionSegment, b.VersionSegment)
	}
}
