// Package demoserver simulates the Shodan API and a fleet of charging-station
// controllers so the pipeline can be exercised without touching the internet.
package demoserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/encoding/charmap"
)

// DemoServer serves the fake search API under /shodan and every device under
// /devices/{ip}.
type DemoServer struct {
	cfg     Config
	devices map[string]Device
	order   []string

	mu          sync.Mutex
	hits        map[string]int
	hostLookups map[string]int
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config) *DemoServer {
	if cfg.APIKey == "" {
		cfg.APIKey = DefaultConfig().APIKey
	}
	if cfg.Fleet == nil {
		cfg.Fleet = DefaultFleet()
	}

	s := &DemoServer{
		cfg:         cfg,
		devices:     make(map[string]Device, len(cfg.Fleet)),
		hits:        make(map[string]int),
		hostLookups: make(map[string]int),
	}
	for _, d := range cfg.Fleet {
		s.devices[d.IP] = d
		s.order = append(s.order, d.IP)
	}
	return s
}

// DeviceURLTemplate returns the device_url_template addressing devices of a
// demo server reachable at baseURL.
func DeviceURLTemplate(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/devices/{ip}"
}

// Handler returns the root HTTP handler.
func (s *DemoServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(s.countHits)

	r.Route("/shodan", func(api chi.Router) {
		api.Use(s.requireKey)
		api.Get("/host/search", s.searchHandler)
		api.Get("/host/{ip}", s.hostHandler)
	})

	r.Get("/devices/{ip}", s.deviceRootHandler)
	r.Get("/devices/{ip}/admin", s.adminHandler)
	r.Get("/devices/{ip}/{unit}", s.unitHandler)

	r.Get("/demo/fleet", s.fleetHandler)
	return r
}

// Start starts the demo server.
func (s *DemoServer) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo server starting on http://localhost%s\n", addr)
	fmt.Printf("Fleet overview at http://localhost%s/demo/fleet\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Hits returns how many requests were made for path.
func (s *DemoServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *DemoServer) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// ===== SEARCH API =====

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func apiError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *DemoServer) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != s.cfg.APIKey {
			apiError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// parseTitleQuery extracts T from title:"T".
func parseTitleQuery(q string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(q), "title:")
	if !ok {
		return "", false
	}
	if title, err := strconv.Unquote(rest); err == nil {
		return title, true
	}
	return strings.Trim(rest, `"`), true
}

type searchMatch struct {
	IP        string                    `json:"ip_str"`
	Port      int                       `json:"port"`
	Hostnames []string                  `json:"hostnames"`
	HTTP      map[string]string         `json:"http"`
	Vulns     map[string]map[string]any `json:"vulns,omitempty"`
}

func (s *DemoServer) searchHandler(w http.ResponseWriter, r *http.Request) {
	title, ok := parseTitleQuery(r.URL.Query().Get("query"))
	if !ok {
		apiError(w, http.StatusBadRequest, "Only title:\"...\" queries are supported by the demo server")
		return
	}

	matches := []searchMatch{}
	for _, ip := range s.order {
		d := s.devices[ip]
		if d.Title != title {
			continue
		}
		m := searchMatch{
			IP:        d.IP,
			Port:      80,
			Hostnames: append([]string{}, d.Hostnames...),
			HTTP:      map[string]string{"title": d.Title},
		}
		if len(d.Vulns) > 0 {
			m.Vulns = make(map[string]map[string]any, len(d.Vulns))
			for _, v := range d.Vulns {
				m.Vulns[v] = map[string]any{"verified": false}
			}
		}
		matches = append(matches, m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches, "total": len(matches)})
}

func (s *DemoServer) hostHandler(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	d, ok := s.devices[ip]
	if !ok {
		apiError(w, http.StatusNotFound, "No information available for that IP.")
		return
	}

	s.mu.Lock()
	s.hostLookups[ip]++
	n := s.hostLookups[ip]
	s.mu.Unlock()
	if n <= d.HostRateLimits {
		apiError(w, http.StatusTooManyRequests, "Rate limit reached")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ip_str":    d.IP,
		"ports":     d.Ports,
		"hostnames": d.Hostnames,
		"vulns":     d.Vulns,
	})
}

// ===== DEVICES =====

func (s *DemoServer) device(w http.ResponseWriter, r *http.Request) (Device, string, bool) {
	ip := chi.URLParam(r, "ip")
	d, ok := s.devices[ip]
	if !ok {
		http.NotFound(w, r)
		return Device{}, "", false
	}
	if d.Behavior == Protected {
		w.Header().Set("WWW-Authenticate", `Basic realm="charger"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return Device{}, "", false
	}
	return d, "/devices/" + ip, true
}

func writePage(w http.ResponseWriter, name string, data any) {
	body, err := render(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

// writeLatin1Page serves the page the way older Ensto firmware does.
func writeLatin1Page(w http.ResponseWriter, name string, data any) {
	body, err := render(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
	_, _ = w.Write(encoded)
}

func (s *DemoServer) deviceRootHandler(w http.ResponseWriter, r *http.Request) {
	d, base, ok := s.device(w, r)
	if !ok {
		return
	}

	switch d.Behavior {
	case Flaky:
		if s.Hits(r.URL.Path) == 1 {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		writePage(w, "garo", garoStatusPage(d, base))
	case GaroStatus, GaroPartial:
		writePage(w, "garo", garoStatusPage(d, base))
	case EnstoSingle:
		writeLatin1Page(w, "ensto", enstoUnitPage(d, "single"))
	case EnstoMasterSlave, EnstoBrokenSlave:
		writePage(w, "ensto", enstoRootPage(d, base))
	default:
		http.NotFound(w, r)
	}
}

func (s *DemoServer) unitHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := s.device(w, r)
	if !ok {
		return
	}
	unit := chi.URLParam(r, "unit")
	if d.Behavior != EnstoMasterSlave && d.Behavior != EnstoBrokenSlave {
		http.NotFound(w, r)
		return
	}
	if unit != "master" && unit != "slave" {
		http.NotFound(w, r)
		return
	}
	if d.Behavior == EnstoBrokenSlave && unit == "slave" {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeLatin1Page(w, "ensto", enstoUnitPage(d, unit))
}

func (s *DemoServer) adminHandler(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.device(w, r); !ok {
		return
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="administration"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// ===== OVERVIEW =====

func (s *DemoServer) fleetHandler(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Device
		RootHits    int `json:"root_hits"`
		HostLookups int `json:"host_lookups"`
	}

	s.mu.Lock()
	out := make([]entry, 0, len(s.order))
	for _, ip := range s.order {
		out = append(out, entry{
			Device:      s.devices[ip],
			RootHits:    s.hits["/devices/"+ip],
			HostLookups: s.hostLookups[ip],
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}
