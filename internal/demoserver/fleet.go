package demoserver

// Behavior selects how a simulated device answers.
type Behavior string

const (
	// GaroStatus serves a full GARO status page.
	GaroStatus Behavior = "garo"
	// GaroPartial serves a GARO page without the Ethernet and Installation sections.
	GaroPartial Behavior = "garo-partial"
	// EnstoSingle serves one Ensto status table on the root page.
	EnstoSingle Behavior = "ensto"
	// EnstoMasterSlave links to a master and a slave unit page.
	EnstoMasterSlave Behavior = "ensto-master-slave"
	// EnstoBrokenSlave is a master/slave pair whose slave page always fails.
	EnstoBrokenSlave Behavior = "ensto-broken-slave"
	// Protected answers 401 everywhere.
	Protected Behavior = "protected"
	// Flaky fails the first request to its root page with 503.
	Flaky Behavior = "flaky"
)

// Device is one simulated controller and what the search index knows about it.
type Device struct {
	IP        string
	Title     string
	Behavior  Behavior
	Company   string
	Hostnames []string
	Ports     []int
	Vulns     []string

	// HostRateLimits is how many host lookups answer 429 before succeeding.
	HostRateLimits int
}

// DefaultFleet returns a small fleet covering every Behavior plus one device
// with a title no extractor handles.
func DefaultFleet() []Device {
	return []Device{
		{IP: "198.51.100.10", Title: "GARO EVSE Status", Behavior: GaroStatus, Company: "GARO", Hostnames: []string{"evse-10.example.net"}, Ports: []int{80, 443}, Vulns: []string{"CVE-2021-44228"}},
		{IP: "198.51.100.11", Title: "GARO EVSE Status", Behavior: GaroPartial, Company: "GARO", Ports: []int{80}, HostRateLimits: 1},
		{IP: "198.51.100.12", Title: "GARO EVSE Status", Behavior: Flaky, Company: "GARO", Ports: []int{80, 8080}},
		{IP: "198.51.100.20", Title: "Charging station interface", Behavior: EnstoSingle, Company: "Ensto", Ports: []int{80}},
		{IP: "198.51.100.21", Title: "Charging station interface", Behavior: EnstoMasterSlave, Company: "Ensto Chago", Hostnames: []string{"depot-a.example.net", "depot-b.example.net"}, Ports: []int{80, 502}},
		{IP: "198.51.100.22", Title: "Charging station interface", Behavior: EnstoBrokenSlave, Company: "Ensto", Ports: []int{80}, Vulns: []string{"CVE-2019-0708", "CVE-2017-0144"}},
		{IP: "198.51.100.23", Title: "Charging station interface", Behavior: Protected, Ports: []int{80}},
		{IP: "198.51.100.30", Title: "EVSE Status", Behavior: GaroStatus, Company: "GARO", Ports: []int{80}},
	}
}
