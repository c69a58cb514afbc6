// Package enumerator discovers candidate devices by querying the search index
// for the page titles charging-station controllers advertise.
package enumerator

import (
	"context"

	"github.com/raysh454/evscout/internal/model"
)

type Enumerator interface {
	Enumerate(ctx context.Context, titles []string) []model.DeviceMatch
}

// Searcher is the search boundary. *shodan.Client implements it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.DeviceMatch, error)
}

// DefaultTitles are the page titles searched when none are configured.
var DefaultTitles = []string{
	"GARO EVSE Status",
	"EVSE Status",
	"EVSE Configuration",
	"EVSE - SPECIFICATIONS",
	"EVSE - DASHBOARD",
	"Kempower Charging Station Panel",
	"Charging Station Management System",
	"Charging station web interface",
	"Charging station web interface :: Etrel",
	"EV Charging Station EV-Charger",
	"Charging station interface",
	"ArthEV - Charging Station",
	"EV Charging Station",
	"EV Cloud Administration Panel",
	"Amplicity - EV charging station",
}
