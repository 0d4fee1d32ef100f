package openid

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
)

const (
	xrdsContentType = "application/xrds+xml"
	xrdsLocation    = "X-XRDS-Location"
)

// maxDiscoveryHops bounds redirect and X-XRDS-Location following so a
// misbehaving identifier cannot send discovery into a loop.
const maxDiscoveryHops = 5

// xrdsDocument mirrors the subset of the XRDS schema discovery needs: the
// service URIs under the xri://$xrd*($v*2.0) namespace.
type xrdsDocument struct {
	XMLName xml.Name `xml:"XRDS"`
	XRD     struct {
		Services []struct {
			URIs []string `xml:"URI"`
		} `xml:"Service"`
	} `xml:"XRD"`
}

// ParseXRDS extracts the first service <URI> from an XRDS document. Returns
// ErrNoEndpoint when the document parses but declares no URI, and
// ErrMalformedXRDS when it does not parse at all.
func ParseXRDS(doc []byte) (string, error) {
	var parsed xrdsDocument
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedXRDS, err)
	}
	for _, svc := range parsed.XRD.Services {
		for _, uri := range svc.URIs {
			if uri != "" {
				return uri, nil
			}
		}
	}
	return "", ErrNoEndpoint
}

// Discover resolves an OpenID identifier to its authentication endpoint via
// YADIS: follow redirects and X-XRDS-Location pointers, depth-bounded, until
// an XRDS document turns up, then take its first service URI.
func (p *Provider) Discover(ctx context.Context, identifier string) (string, error) {
	target := identifier
	for hop := 0; hop < maxDiscoveryHops; hop++ {
		resp, err := p.discoveryGet(ctx, target)
		if err != nil {
			return "", err
		}

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound,
			http.StatusSeeOther, http.StatusTemporaryRedirect:
			location := resp.Header.Get("Location")
			_ = resp.Body.Close()
			if location == "" {
				return "", fmt.Errorf("%w: redirect without location at %s", ErrNoEndpoint, target)
			}
			target = location
			continue
		}

		if loc := resp.Header.Get(xrdsLocation); loc != "" && loc != target {
			_ = resp.Body.Close()
			target = loc
			continue
		}

		doc, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("read discovery response from %s: %w", target, err)
		}
		return ParseXRDS(doc)
	}
	return "", ErrTooManyRedirects
}

func (p *Provider) discoveryGet(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build discovery request for %s: %w", target, err)
	}
	req.Header.Set("Accept", xrdsContentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery request to %s: %w", target, err)
	}
	return resp, nil
}
