package demoserver

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type garoSection struct {
	Label   string
	Headers []string
	Values  []string
}

type garoPage struct {
	Title     string
	Version   string
	AdminHref string
	Sections  []garoSection
}

type enstoLink struct {
	Label string
	Href  string
}

type enstoPage struct {
	Title   string
	Company string
	Links   []enstoLink
	Rows    [][2]string
}

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "garo"}}<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<div class="header">
  <img src="/static/logo.png" alt="GARO">
  <p>Software version: {{.Version}}</p>
  <a href="{{.AdminHref}}">Administration</a>
</div>
{{range .Sections}}
<h3>{{.Label}}</h3>
<table>
  <thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
  <tbody><tr>{{range .Values}}<td>{{.}}</td>{{end}}</tr></tbody>
</table>
{{end}}
</body>
</html>{{end}}

{{define "ensto"}}<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<span id="_vendor_" style="display:none">{{.Company}}</span>
{{if .Links}}<ul class="units">{{range .Links}}
  <li><a href="{{.Href}}">{{.Label}}</a></li>{{end}}
</ul>{{end}}
<table class="status">
  <tr><th>Parameter</th><th>Value</th></tr>
{{range .Rows}}  <tr><td>{{index . 0}}</td><td>{{index . 1}}</td></tr>
{{end}}</table>
</body>
</html>{{end}}
`))

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func lastOctet(ip string) string {
	if i := strings.LastIndex(ip, "."); i >= 0 {
		return ip[i+1:]
	}
	return ip
}

func garoStatusPage(d Device, base string) garoPage {
	n := lastOctet(d.IP)
	sections := []garoSection{
		{Label: "EVSE Access-Point:", Headers: []string{"Serial Number", "Model", "Mode"}, Values: []string{"GA-" + n, "GLB+ Wallbox", "Slave"}},
		{Label: "CSMS Connection:", Headers: []string{"URL", "State", "Charge Point ID"}, Values: []string{"wss://csms.example.net/ocpp", "Connected", "CP" + n}},
		{Label: "Connection Status:", Headers: []string{"IP Address", "Uptime"}, Values: []string{d.IP, "21d 7h"}},
		{Label: "Ethernet Settings:", Headers: []string{"DHCP", "Gateway", "DNS"}, Values: []string{"On", "192.0.2.1", "192.0.2.53"}},
		{Label: "Installation Bracket information:", Headers: []string{"Bracket ID", "Max Current"}, Values: []string{"BR-" + n, "32A"}},
	}
	if d.Behavior == GaroPartial {
		sections = sections[:3]
	}
	return garoPage{
		Title:     d.Title,
		Version:   "GLB-1.4." + n,
		AdminHref: base + "/admin",
		Sections:  sections,
	}
}

func enstoUnitPage(d Device, unit string) enstoPage {
	n := lastOctet(d.IP)
	return enstoPage{
		Title:   d.Title,
		Company: d.Company,
		Rows: [][2]string{
			{"Serial number", fmt.Sprintf("EN-%s-%s", n, unit)},
			{"Firmware", "1.10.0"},
			{"Location", "Göteborg"},
			{"Connector state", "Available"},
			{"Firmware", "1.10.3"},
		},
	}
}

func enstoRootPage(d Device, base string) enstoPage {
	return enstoPage{
		Title:   d.Title,
		Company: d.Company,
		Links: []enstoLink{
			{Label: "Master", Href: base + "/master"},
			{Label: "Slave", Href: base + "/slave"},
		},
		Rows: [][2]string{{"Units", "2"}},
	}
}
