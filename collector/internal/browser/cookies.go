package browser

import (
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/vendas/collector/internal/session"
)

// ToParams converts saved cookies to Network.setCookies parameters.
// Session cookies (Expires <= 0) are set without an expiry.
func ToParams(cookies []session.Cookie) []*proto.NetworkCookieParam {
	out := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		}
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		out = append(out, p)
	}
	return out
}

// FromCookies converts browser cookies to the saved format. Session cookies
// get Expires -1.
func FromCookies(cookies []*proto.NetworkCookie) []session.Cookie {
	out := make([]session.Cookie, 0, len(cookies))
	for _, c := range cookies {
		exp := float64(c.Expires)
		if c.Session || exp <= 0 {
			exp = -1
		}
		out = append(out, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  exp,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}
