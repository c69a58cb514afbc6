package model

// Vendor is the closed set of harvestable vendors, resolved once from the
// advertised page title.
type Vendor string

const (
	VendorUnknown Vendor = ""
	VendorGaro    Vendor = "garo"
	VendorEnsto   Vendor = "ensto"
)

// VendorKind selects the extraction strategy for a vendor.
type VendorKind int

const (
	// FlatTable pages carry every section on the root document.
	FlatTable VendorKind = iota

	// TopologyAware pages may link to sub-device pages (master/slave units)
	// that must be scraped on their own.
	TopologyAware
)

func (k VendorKind) String() string {
	switch k {
	case FlatTable:
		return "flat-table"
	case TopologyAware:
		return "topology-aware"
	default:
		return "unknown"
	}
}
