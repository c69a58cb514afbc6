package model

// ScrapeTarget is one URL to fetch and extract.
type ScrapeTarget struct {
	// URL is always absolute.
	URL      string
	Vendor   Vendor
	ParentIP string
}

// Fields is an insertion-ordered string map. Keys are unique; setting an
// existing key replaces its value and keeps its original position.
type Fields struct {
	keys   []string
	values map[string]string
}

// Set stores value under key.
func (f *Fields) Set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the keys in first-insertion order.
func (f *Fields) Keys() []string {
	return append([]string(nil), f.keys...)
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	return len(f.keys)
}

// VendorRecord is the normalized extraction of one page: the fixed url and
// company_name columns plus an open set of vendor-specific fields.
type VendorRecord struct {
	URL         string
	CompanyName string
	Vendor      Vendor
	ParentIP    string
	Fields      Fields
}
