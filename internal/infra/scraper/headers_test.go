package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomHeaders_ShapeIsConsistent(t *testing.T) {
	h := RandomHeaders()

	ua := h.Get("User-Agent")
	require.NotEmpty(t, ua)
	assert.Contains(t, ua, "Mozilla/5.0")
	assert.Contains(t, ua, "Chrome/")
	assert.Contains(t, ua, "Safari/537.36")

	assert.NotEmpty(t, h.Get("sec-ch-ua"))
	assert.NotEmpty(t, h.Get("sec-ch-ua-full-version"))
	assert.Equal(t, "?0", h.Get("sec-ch-ua-mobile"))
	assert.Equal(t, `"x86"`, h.Get("sec-ch-ua-arch"))
}

func TestRandomHeaders_VersionMatchesTable(t *testing.T) {
	h := RandomHeaders()
	full := h.Get("sec-ch-ua-full-version")

	major := strings.SplitN(full, ".", 2)[0]
	versions, ok := chromeVersions[major]
	require.True(t, ok, "unknown major %s", major)
	assert.Contains(t, versions, full)

	// the user agent advertises the same major release
	assert.Contains(t, h.Get("User-Agent"), "Chrome/"+major+".")
}

func TestRandomHeaders_PlatformIsQuoted(t *testing.T) {
	h := RandomHeaders()
	platform := h.Get("sec-ch-ua-platform")
	assert.True(t, strings.HasPrefix(platform, `"`) && strings.HasSuffix(platform, `"`))
}
