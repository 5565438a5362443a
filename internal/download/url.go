package download

import "net/url"

// IsHTTPURL reports whether raw is an absolute http or https URL. Anything
// else, including strings yt-dlp would parse as flags, is refused.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
