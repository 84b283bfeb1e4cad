package gitintel

import (
	"regexp"
	"strings"
)

var (
	pathRe     = regexp.MustCompile(`(?:[a-zA-Z]:)?(?:/|\\)[^\s:]+`)
	lineColRe  = regexp.MustCompile(`:\d+(?::\d+)?`)
	hexLiteral = regexp.MustCompile(`0[xX][0-9a-fA-F]+|\b[0-9a-fA-F]{6,}\b`)
	wsRe       = regexp.MustCompile(`\s+`)
)

// CanonicalizeErrorSignature implements spec §3's error_signature
// canonicalizer: lowercase, strip paths, strip line/column numbers,
// collapse whitespace, replace hex literals with '#'.
func CanonicalizeErrorSignature(text string) string {
	s := strings.ToLower(text)
	s = pathRe.ReplaceAllString(s, "")
	s = lineColRe.ReplaceAllString(s, "")
	s = hexLiteral.ReplaceAllString(s, "#")
	s = wsRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// fixCommitRe matches commit messages that mark a commit as a fix, per
// spec §4.G.
var fixCommitRe = regexp.MustCompile(`(?i)\b(fix|bug|regression|hotfix|patch)\b`)

// IsFixCommit reports whether a commit message looks like a fix commit.
func IsFixCommit(message string) bool {
	return fixCommitRe.MatchString(message)
}
