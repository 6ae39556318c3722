package linkcodec

import "strings"

const (
	uploadRoute = "/#/upload"
	dataParam   = "data="
)

// BuildLink returns the client link for a token.
func BuildLink(origin, token string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/") + uploadRoute + "?" + dataParam + token
}

// ExtractToken pulls the token out of whatever a client pasted: a full link,
// a link wrapped with tracking parameters, or the bare token.
func ExtractToken(pasted string) (string, bool) {
	s := strings.TrimSpace(pasted)
	if idx := strings.Index(s, dataParam); idx >= 0 {
		s = s[idx+len(dataParam):]
		if end := strings.IndexAny(s, "&# \t\r\n"); end >= 0 {
			s = s[:end]
		}
	}
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)
	s = strings.TrimSpace(s)
	return s, s != ""
}
