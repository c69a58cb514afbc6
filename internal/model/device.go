package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NoKnownVulns is recorded in HostInfo.Vulns when the search index reported no
// vulnerability identifiers for a host.
const NoKnownVulns = "None"

// DeviceMatch is one search-index hit. It is built by the shodan client from
// the decoded match and never modified afterwards; it is not a wire type.
type DeviceMatch struct {
	// IP is the device address as reported by the index (never empty).
	IP string

	// Title is the advertised HTTP page title.
	Title string

	Hostnames []string

	// Vulns maps vulnerability identifiers (free text) to index-specific details.
	Vulns map[string]json.RawMessage

	Port int

	// Raw is the untouched service payload.
	Raw json.RawMessage
}

// HostInfo is the enrichment result for one IP. A nil *HostInfo means the
// enrichment failed and downstream code must cope without it.
type HostInfo struct {
	IP        string
	Title     string
	OpenPorts []int
	Vulns     []string
	Hostnames []string
}

// PortsString renders the open ports as a comma separated list.
func (h *HostInfo) PortsString() string {
	if h == nil {
		return ""
	}
	parts := make([]string, 0, len(h.OpenPorts))
	for _, p := range h.OpenPorts {
		parts = append(parts, strconv.Itoa(p))
	}
	return strings.Join(parts, ",")
}

// Device is a classified match that is ready to be harvested.
type Device struct {
	IP     string
	Vendor Vendor
	Host   *HostInfo
}
