package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/utils"
)

// Section is one labeled table on a flat-table status page.
type Section struct {
	// Label is the exact text of the <h3> heading.
	Label string

	// Prefix is prepended to each column name of the section.
	Prefix string
}

// DefaultGaroSections are the sections of a GARO status page.
var DefaultGaroSections = []Section{
	{Label: "EVSE Access-Point:", Prefix: "Access-Point"},
	{Label: "CSMS Connection:", Prefix: "CSMS"},
	{Label: "Connection Status:", Prefix: "Connection"},
	{Label: "Ethernet Settings:", Prefix: "Ethernet"},
	{Label: "Installation Bracket information:", Prefix: "Installation"},
}

const (
	garoCompanyName    = "GARO"
	softwareVersionKey = "Software version"
	adminURLKey        = "Administration URL"
	adminLinkText      = "Administration"
)

// Garo extracts the flat-table GARO status page.
type Garo struct {
	sections []Section
	logger   logging.Logger
}

var _ Extractor = (*Garo)(nil)

// NewGaro creates a GARO extractor. sections overrides DefaultGaroSections.
func NewGaro(logger logging.Logger, sections ...Section) *Garo {
	if logger == nil {
		logger = logging.Nop()
	}
	if len(sections) == 0 {
		sections = DefaultGaroSections
	}
	return &Garo{
		sections: sections,
		logger:   logger.With(logging.Field{Key: "extractor", Value: string(model.VendorGaro)}),
	}
}

func (g *Garo) Vendor() model.Vendor   { return model.VendorGaro }
func (g *Garo) Kind() model.VendorKind { return model.FlatTable }

// Extract zips every present section into prefixed fields and adds the
// software version and the absolute administration URL. A page without
// either scalar is not a valid status page and yields no record.
func (g *Garo) Extract(body, pageURL string) (model.VendorRecord, bool) {
	doc, err := parseDocument(body)
	if err != nil {
		g.logger.Error("couldn't parse page", logging.Field{Key: "url", Value: pageURL}, logging.Field{Key: "error", Value: err.Error()})
		return model.VendorRecord{}, false
	}

	rec := model.VendorRecord{
		URL:         pageURL,
		CompanyName: garoCompanyName,
		Vendor:      model.VendorGaro,
	}

	for _, sec := range g.sections {
		headers, values, ok := sectionTable(doc, sec.Label)
		if !ok {
			g.logger.Debug("section not found",
				logging.Field{Key: "url", Value: pageURL},
				logging.Field{Key: "section", Value: sec.Label})
			continue
		}
		for i := 0; i < len(headers) && i < len(values); i++ {
			rec.Fields.Set(sec.Prefix+" "+headers[i], values[i])
		}
	}

	version, ok := softwareVersion(doc)
	if !ok {
		g.logger.Warn("software version not found", logging.Field{Key: "url", Value: pageURL})
		return model.VendorRecord{}, false
	}

	href, ok := adminHref(doc)
	if !ok {
		g.logger.Warn("administration link not found", logging.Field{Key: "url", Value: pageURL})
		return model.VendorRecord{}, false
	}
	adminURL, err := utils.ResolveURL(pageURL, href)
	if err != nil {
		g.logger.Warn("couldn't resolve administration link",
			logging.Field{Key: "url", Value: pageURL},
			logging.Field{Key: "href", Value: href},
			logging.Field{Key: "error", Value: err.Error()})
		return model.VendorRecord{}, false
	}

	rec.Fields.Set(softwareVersionKey, version)
	rec.Fields.Set(adminURLKey, adminURL)
	return rec, true
}

// sectionTable finds the <h3> labeled label and the first <table> sibling
// after it, returning the header names and the data row.
func sectionTable(doc *goquery.Document, label string) ([]string, []string, bool) {
	heading := doc.Find("h3").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return cleanText(s) == label
	}).First()
	if heading.Length() == 0 {
		return nil, nil, false
	}

	table := heading.NextAllFiltered("table").First()
	if table.Length() == 0 {
		return nil, nil, false
	}

	thead := table.Find("thead")
	tbody := table.Find("tbody")
	if thead.Length() == 0 || tbody.Length() == 0 {
		return nil, nil, false
	}

	headers := thead.Find("th").Map(func(_ int, s *goquery.Selection) string { return cleanText(s) })
	values := tbody.Find("td").Map(func(_ int, s *goquery.Selection) string { return cleanText(s) })
	return headers, values, true
}

func softwareVersion(doc *goquery.Document) (string, bool) {
	text, ok := findText(doc, softwareVersionKey+":")
	if !ok {
		return "", false
	}
	version := strings.TrimSpace(strings.TrimPrefix(text, softwareVersionKey+":"))
	return version, version != ""
}

func adminHref(doc *goquery.Document) (string, bool) {
	link := doc.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return cleanText(s) == adminLinkText
	}).First()
	if link.Length() == 0 {
		return "", false
	}
	return link.Attr("href")
}
