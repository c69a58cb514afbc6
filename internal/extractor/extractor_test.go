package extractor_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/raysh454/evscout/internal/extractor"
	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/testutil"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(b)
}

func field(t *testing.T, rec model.VendorRecord, key string) string {
	t.Helper()
	v, ok := rec.Fields.Get(key)
	if !ok {
		t.Fatalf("missing field %q in %v", key, rec.Fields.Keys())
	}
	return v
}

// ─── GARO (flat-table) ─────────────────────────────────────────────────

func TestGaro_ExtractAllSections(t *testing.T) {
	t.Parallel()
	g := extractor.NewGaro(&testutil.DummyLogger{})

	rec, ok := g.Extract(fixture(t, "garo_full.html"), "http://192.0.2.10")
	if !ok {
		t.Fatal("expected a record")
	}

	if rec.URL != "http://192.0.2.10" || rec.CompanyName != "GARO" || rec.Vendor != model.VendorGaro {
		t.Fatalf("unexpected fixed columns: %+v", rec)
	}

	want := map[string]string{
		"Access-Point Serial Number": "GA-1001",
		"Access-Point Model":         "GLB Wallbox",
		"CSMS URL":                   "wss://csms.example.net/ocpp",
		"CSMS State":                 "Connected",
		"Connection IP Address":      "192.0.2.10",
		"Connection Uptime":          "12d 4h",
		"Ethernet DHCP":              "On",
		"Ethernet Gateway":           "192.0.2.1",
		"Installation Bracket ID":    "BR-77",
		"Installation Max Current":   "32A",
		"Software version":           "GLB-1.4.2",
		"Administration URL":         "http://192.0.2.10/admin/login.html",
	}
	for k, v := range want {
		if got := field(t, rec, k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if _, ok := rec.Fields.Get("Installation Phases"); ok {
		t.Error("header without a data cell must not be zipped")
	}
	if rec.Fields.Len() != len(want) {
		t.Errorf("field count = %d, want %d (%v)", rec.Fields.Len(), len(want), rec.Fields.Keys())
	}
}

func TestGaro_MissingSectionIsOmitted(t *testing.T) {
	t.Parallel()
	g := extractor.NewGaro(nil)

	rec, ok := g.Extract(fixture(t, "garo_no_ethernet.html"), "http://10.1.1.5")
	if !ok {
		t.Fatal("missing sections must not invalidate the record")
	}

	if got := field(t, rec, "Access-Point Serial Number"); got != "GA-2002" {
		t.Errorf("access point serial = %q", got)
	}
	if got := field(t, rec, "CSMS URL"); got != "ws://10.1.1.1:9000" {
		t.Errorf("csms url = %q", got)
	}
	if got := field(t, rec, "Administration URL"); got != "http://10.1.1.5/admin.html" {
		t.Errorf("admin url = %q", got)
	}
	for _, k := range rec.Fields.Keys() {
		if strings.HasPrefix(k, "Ethernet") || strings.HasPrefix(k, "Installation") || strings.HasPrefix(k, "Connection") {
			t.Errorf("unexpected key %q from an absent section", k)
		}
	}
}

func TestGaro_MissingScalarInvalidatesRecord(t *testing.T) {
	t.Parallel()
	g := extractor.NewGaro(nil)

	if _, ok := g.Extract(fixture(t, "garo_no_version.html"), "http://10.1.1.6"); ok {
		t.Fatal("expected no record without a software version")
	}

	noAdmin := strings.Replace(fixture(t, "garo_full.html"), ">Administration<", ">Settings<", 1)
	if _, ok := g.Extract(noAdmin, "http://10.1.1.6"); ok {
		t.Fatal("expected no record without an administration link")
	}
}

func TestGaro_CustomSections(t *testing.T) {
	t.Parallel()
	g := extractor.NewGaro(nil, extractor.Section{Label: "CSMS Connection:", Prefix: "Backend"})

	rec, ok := g.Extract(fixture(t, "garo_full.html"), "http://192.0.2.10")
	if !ok {
		t.Fatal("expected record")
	}
	if got := field(t, rec, "Backend State"); got != "Connected" {
		t.Errorf("Backend State = %q", got)
	}
	if _, ok := rec.Fields.Get("Access-Point Model"); ok {
		t.Error("only configured sections should be read")
	}
}

// ─── Ensto (topology-aware) ────────────────────────────────────────────

func TestEnsto_DiscoverSubTargets(t *testing.T) {
	t.Parallel()
	e := extractor.NewEnsto(nil)

	got := e.DiscoverSubTargets(fixture(t, "ensto_root_topology.html"), "http://10.0.0.9")
	want := []string{
		"http://10.0.0.9/unit/master/status",
		"http://10.0.0.9/unit/slave/status",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sub-targets = %v, want %v", got, want)
	}
}

func TestEnsto_DiscoverSubTargets_NoTopology(t *testing.T) {
	t.Parallel()
	e := extractor.NewEnsto(nil)

	if got := e.DiscoverSubTargets(fixture(t, "ensto_status.html"), "http://10.0.0.9"); len(got) != 0 {
		t.Fatalf("expected no sub-targets, got %v", got)
	}
}

func TestEnsto_DiscoverSubTargets_CustomLabels(t *testing.T) {
	t.Parallel()
	e := extractor.NewEnsto(nil, "Help")

	got := e.DiscoverSubTargets(fixture(t, "ensto_root_topology.html"), "http://10.0.0.9")
	if !reflect.DeepEqual(got, []string{"http://10.0.0.9/help"}) {
		t.Fatalf("sub-targets = %v", got)
	}
}

func TestEnsto_ExtractLastRowWins(t *testing.T) {
	t.Parallel()
	e := extractor.NewEnsto(nil)

	rec, ok := e.Extract(fixture(t, "ensto_status.html"), "http://10.0.0.9/unit/master/status")
	if !ok {
		t.Fatal("expected record")
	}
	if rec.CompanyName != "Ensto Chago" {
		t.Errorf("company = %q", rec.CompanyName)
	}
	if rec.URL != "http://10.0.0.9/unit/master/status" {
		t.Errorf("url = %q", rec.URL)
	}
	if got := field(t, rec, "Serial"); got != "EN-0042" {
		t.Errorf("Serial = %q", got)
	}
	if got := field(t, rec, "Firmware"); got != "1.11.0" {
		t.Errorf("Firmware = %q, want last row to win", got)
	}
	if got, want := rec.Fields.Keys(), []string{"Serial", "Firmware"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestEnsto_ExtractIgnoresVisibleVendorMarker(t *testing.T) {
	t.Parallel()
	e := extractor.NewEnsto(nil)

	rec, ok := e.Extract(fixture(t, "ensto_no_vendor.html"), "http://10.0.0.7")
	if !ok {
		t.Fatal("expected record")
	}
	if rec.CompanyName != "" {
		t.Errorf("company = %q, want empty for a visible marker", rec.CompanyName)
	}
	if got := field(t, rec, "Serial"); got != "EN-7" {
		t.Errorf("Serial = %q", got)
	}
}

// ─── Registry ─────────────────────────────────────────────────────────

func TestRegistry_Classify(t *testing.T) {
	t.Parallel()
	r := extractor.DefaultRegistry(nil)

	tests := map[string]model.Vendor{
		"GARO EVSE Status":             model.VendorGaro,
		" Charging station interface ": model.VendorEnsto,
		"EVSE Status":                  model.VendorUnknown,
		"":                             model.VendorUnknown,
	}
	for title, want := range tests {
		if got := r.Classify(title); got != want {
			t.Errorf("Classify(%q) = %q, want %q", title, got, want)
		}
	}

	if err := r.AddTitle("EVSE Status", model.VendorGaro); err != nil {
		t.Fatalf("AddTitle: %v", err)
	}
	if got := r.Classify("EVSE Status"); got != model.VendorGaro {
		t.Errorf("after AddTitle got %q", got)
	}
	if err := r.AddTitle("Kempower", "kempower"); err == nil {
		t.Error("expected error for unregistered vendor")
	}

	e, ok := r.Get(model.VendorEnsto)
	if !ok || e.Kind() != model.TopologyAware {
		t.Fatalf("ensto extractor = %v, %v", e, ok)
	}
	if _, ok := e.(extractor.TopologyExtractor); !ok {
		t.Fatal("ensto extractor must discover sub-targets")
	}
}
