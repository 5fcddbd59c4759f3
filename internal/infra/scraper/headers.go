package scraper

import (
	"fmt"
	"math/rand"
	"net/http"
)

// chromeVersions maps major Chrome releases to full version strings observed
// in the wild. One pair is picked per request so consecutive fetches do not
// present the same fingerprint.
var chromeVersions = map[string][]string{
	"108": {"108.0.5359.124", "108.0.5359.179", "108.0.5359.215"},
	"109": {"109.0.5414.74", "109.0.5414.119"},
	"110": {"110.0.5481.77", "110.0.5481.208"},
	"111": {"111.0.5563.110", "111.0.5563.147"},
	"112": {"112.0.5615.49", "112.0.5615.121", "112.0.5615.138"},
	"113": {"113.0.5672.126"},
	"114": {"114.0.5735.90", "114.0.5735.133", "114.0.5735.198"},
}

var (
	platforms        = []string{"Linux", "Windows"}
	platformVersions = map[string][]string{
		"Linux":   {"6.4.0", "6.3.0", "6.2.0", "6.1.0", "5.19.0", "5.15.0"},
		"Windows": {"13.0.0", "10.0.0"},
	}
	systemInformation = map[string]string{
		"Linux":   "X11; Linux x86_64",
		"Windows": "Windows NT 10.0; Win64; x64",
	}
)

func randomChromeVersion() (major, full string) {
	majors := make([]string, 0, len(chromeVersions))
	for m := range chromeVersions {
		majors = append(majors, m)
	}
	major = majors[rand.Intn(len(majors))]
	versions := chromeVersions[major]
	return major, versions[rand.Intn(len(versions))]
}

// RandomHeaders builds a randomized Chrome request header set. Called once
// per outgoing page fetch.
func RandomHeaders() http.Header {
	major, full := randomChromeVersion()
	platform := platforms[rand.Intn(len(platforms))]
	platformVersion := platformVersions[platform][rand.Intn(len(platformVersions[platform]))]

	userAgent := fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s.0.0.0 Safari/537.36",
		systemInformation[platform], major)

	secChUA := fmt.Sprintf(
		`"Chromium";v="%s", "Google Chrome";v="%s", "Not:A-Brand";v="99"`,
		major, major)
	secChUAFullList := fmt.Sprintf(
		`"Chromium";v="%s", "Google Chrome";v="%s", "Not:A-Brand";v="99.0.0.0"`,
		full, full)

	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("sec-ch-ua", secChUA)
	h.Set("sec-ch-ua-full-version", full)
	h.Set("sec-ch-ua-full-version-list", secChUAFullList)
	h.Set("sec-ch-ua-platform", fmt.Sprintf("%q", platform))
	h.Set("sec-ch-ua-platform-version", fmt.Sprintf("%q", platformVersion))
	h.Set("sec-ch-ua-arch", `"x86"`)
	h.Set("sec-ch-ua-bitness", `"64"`)
	h.Set("sec-ch-ua-mobile", "?0")
	h.Set("sec-ch-ua-model", `""`)
	return h
}
