// Package aggregator assembles harvested records and enriched hosts into the
// output tables.
package aggregator

import (
	"sort"
	"strings"

	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/utils"
)

const (
	ColumnURL         = "url"
	ColumnCompanyName = "company_name"
)

// HostColumns is the header of the hosts table.
var HostColumns = []string{"IP", "Hostnames", "Open Ports", "Title", "Known CVEs"}

// Table is a rectangular result: every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Options tunes Aggregate.
type Options struct {
	// NormalizeColumns lower-cases vendor columns and replaces spaces and
	// dashes with underscores.
	NormalizeColumns bool
}

// Aggregate builds the record table. Columns are url, company_name and then
// every vendor field in first-seen order over the sorted rows; rows are sorted
// by company_name (empty first), then url. The result does not depend on the
// order of records.
func Aggregate(records []model.VendorRecord, opts Options) Table {
	rows := make([]flatRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, flatten(rec, opts))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.company != b.company {
			return a.company < b.company
		}
		if a.url != b.url {
			return a.url < b.url
		}
		return a.signature() < b.signature()
	})

	columns := []string{ColumnURL, ColumnCompanyName}
	index := map[string]int{ColumnURL: 0, ColumnCompanyName: 1}
	for _, r := range rows {
		for _, k := range r.keys {
			if _, ok := index[k]; !ok {
				index[k] = len(columns)
				columns = append(columns, k)
			}
		}
	}

	out := Table{Columns: columns, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		cells := make([]string, len(columns))
		cells[0] = r.url
		cells[1] = r.company
		for _, k := range r.keys {
			cells[index[k]] = r.values[k]
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

type flatRecord struct {
	url     string
	company string
	keys    []string
	values  map[string]string
}

func (f flatRecord) signature() string {
	var b strings.Builder
	for _, k := range f.keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(f.values[k])
		b.WriteByte(0)
	}
	return b.String()
}

// flatten resolves the record's final column names. Inside one record the
// last write to a column wins.
func flatten(rec model.VendorRecord, opts Options) flatRecord {
	f := flatRecord{
		url:     rec.URL,
		company: rec.CompanyName,
		values:  make(map[string]string, rec.Fields.Len()),
	}
	for _, key := range rec.Fields.Keys() {
		value, _ := rec.Fields.Get(key)
		col := columnName(key, rec.Vendor, opts)
		if _, ok := f.values[col]; !ok {
			f.keys = append(f.keys, col)
		}
		f.values[col] = value
	}
	return f
}

func columnName(key string, vendor model.Vendor, opts Options) string {
	if opts.NormalizeColumns {
		key = utils.NormalizeColumnName(key)
	}
	if key == ColumnURL || key == ColumnCompanyName {
		prefix := string(vendor)
		if prefix == "" {
			prefix = "vendor"
		}
		return prefix + "_" + key
	}
	return key
}

// HostTable renders enriched hosts sorted by IP. Nil entries are skipped.
func HostTable(hosts []*model.HostInfo) Table {
	sorted := make([]*model.HostInfo, 0, len(hosts))
	for _, h := range hosts {
		if h != nil {
			sorted = append(sorted, h)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].IP < sorted[j].IP })

	t := Table{Columns: append([]string(nil), HostColumns...), Rows: make([][]string, 0, len(sorted))}
	for _, h := range sorted {
		t.Rows = append(t.Rows, []string{
			h.IP,
			strings.Join(h.Hostnames, " - "),
			h.PortsString(),
			h.Title,
			strings.Join(h.Vulns, " - "),
		})
	}
	return t
}
