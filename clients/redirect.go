package clients

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const maxRedirects = 10

// sameHost compares scheme-independent host:port of two URLs
func sameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host)
}

// dropTokenOffHost is an http.Client CheckRedirect. The API token is only
// sent to the host the request started on; redirects elsewhere, such as a
// presigned storage URL, go without it.
func dropTokenOffHost(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !sameHost(req.URL, via[0].URL) {
		req.Header.Del(TokenHeader)
	}
	return nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
