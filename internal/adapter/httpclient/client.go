package httpclient

import (
	"net/http"

	"github.com/jgivc/rocketimages/internal/config"
)

// New returns a client for outbound API and image requests.
// The proxy setting lives on the transport so nothing touches process environment.
func New(cfg config.HTTPConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyDisabled() {
		transport.Proxy = nil
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}
