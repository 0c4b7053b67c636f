package readiness

import (
	"regexp"

	"releasecompass/internal/domain"
)

// isrcPattern matches a 12-character ISRC: country code, registrant code,
// year and designation digits. Hyphenated display forms are not accepted.
var isrcPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}[0-9]{7}$`)

func ValidISRC(code string) bool {
	return isrcPattern.MatchString(code)
}

// MetadataProblems lists what keeps a master's metadata from being
// distribution-ready. A nil metadata record means nothing was set yet.
func MetadataProblems(md *domain.MasterMetadata, validGenre func(string) bool) []string {
	if md == nil {
		return []string{"metadata not set"}
	}
	var problems []string
	if md.ISRC == "" {
		problems = append(problems, "isrc missing")
	} else if !ValidISRC(md.ISRC) {
		problems = append(problems, "isrc malformed")
	}
	if md.Genre == "" {
		problems = append(problems, "genre missing")
	} else if !validGenre(md.Genre) {
		problems = append(problems, "genre not recognized")
	}
	if md.Explicit == nil {
		problems = append(problems, "explicit flag not set")
	}
	return problems
}
