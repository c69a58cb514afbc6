package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/utils"
)

// DefaultRoleLabels are the link texts an Ensto controller uses for the
// units of a master/slave installation.
var DefaultRoleLabels = []string{"Master", "Slave"}

// Ensto extracts the topology-aware Ensto status pages: a root page may link
// to one page per unit, and each page is a generic two-column table.
type Ensto struct {
	roleLabels map[string]struct{}
	logger     logging.Logger
}

var _ TopologyExtractor = (*Ensto)(nil)

// NewEnsto creates an Ensto extractor. roleLabels overrides DefaultRoleLabels.
func NewEnsto(logger logging.Logger, roleLabels ...string) *Ensto {
	if logger == nil {
		logger = logging.Nop()
	}
	if len(roleLabels) == 0 {
		roleLabels = DefaultRoleLabels
	}
	labels := make(map[string]struct{}, len(roleLabels))
	for _, l := range roleLabels {
		labels[l] = struct{}{}
	}
	return &Ensto{
		roleLabels: labels,
		logger:     logger.With(logging.Field{Key: "extractor", Value: string(model.VendorEnsto)}),
	}
}

func (e *Ensto) Vendor() model.Vendor   { return model.VendorEnsto }
func (e *Ensto) Kind() model.VendorKind { return model.TopologyAware }

// DiscoverSubTargets returns the hrefs of links labeled with a unit role.
func (e *Ensto) DiscoverSubTargets(body, pageURL string) []string {
	doc, err := parseDocument(body)
	if err != nil {
		e.logger.Error("couldn't parse root page", logging.Field{Key: "url", Value: pageURL}, logging.Field{Key: "error", Value: err.Error()})
		return nil
	}

	var targets []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if _, ok := e.roleLabels[cleanText(a)]; !ok {
			return
		}
		href, _ := a.Attr("href")
		resolved, err := utils.ResolveURL(pageURL, href)
		if err != nil {
			e.logger.Warn("couldn't resolve sub-device url",
				logging.Field{Key: "url", Value: pageURL},
				logging.Field{Key: "href", Value: href},
				logging.Field{Key: "error", Value: err.Error()})
			return
		}
		targets = append(targets, resolved)
	})
	return targets
}

// Extract reads the vendor marker and every two-cell table row. Later rows
// overwrite earlier rows with the same key.
func (e *Ensto) Extract(body, pageURL string) (model.VendorRecord, bool) {
	doc, err := parseDocument(body)
	if err != nil {
		e.logger.Error("couldn't parse page", logging.Field{Key: "url", Value: pageURL}, logging.Field{Key: "error", Value: err.Error()})
		return model.VendorRecord{}, false
	}

	rec := model.VendorRecord{
		URL:    pageURL,
		Vendor: model.VendorEnsto,
	}

	doc.Find("span#_vendor_").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		if !hasHiddenStyle(style) {
			return true
		}
		rec.CompanyName = cleanText(s)
		return false
	})

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := cleanText(cells.Eq(0))
		if key == "" {
			return
		}
		rec.Fields.Set(key, cleanText(cells.Eq(1)))
	})

	return rec, true
}
