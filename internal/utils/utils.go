package utils

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// DefaultDeviceURLTemplate addresses a device by its bare IP over plain HTTP.
const DefaultDeviceURLTemplate = "http://{ip}"

// DeviceURL expands template, replacing every "{ip}" with ip.
func DeviceURL(template, ip string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultDeviceURLTemplate
	}
	return strings.ReplaceAll(template, "{ip}", ip)
}

// ResolveURL resolves ref against base and returns an absolute URL with a
// lower-cased, punycoded host and without default ports or fragments.
//
// Examples:
//
//	ResolveURL("http://10.0.0.1", "/master")            → "http://10.0.0.1/master"
//	ResolveURL("http://10.0.0.1/status/", "admin.html") → "http://10.0.0.1/status/admin.html"
//	ResolveURL("http://10.0.0.1", "http://10.0.0.2:80") → "http://10.0.0.2"
func ResolveURL(base, ref string) (string, error) {
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("couldn't parse base url %s: %w", base, err)
	}
	if !b.IsAbs() {
		return "", fmt.Errorf("base url %s is not absolute", base)
	}

	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("couldn't parse url %s: %w", ref, err)
	}

	u := b.ResolveReference(r)
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	return u.String(), nil
}

// NormalizeColumnName lower-cases name and replaces spaces and dashes with
// underscores, e.g. "Access-Point Serial Number" → "access_point_serial_number".
func NormalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}
