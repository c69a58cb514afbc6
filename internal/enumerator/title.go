package enumerator

import (
	"context"
	"fmt"
	"strings"

	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/shodan"
	"golang.org/x/sync/errgroup"
)

// TitleEnumerator runs one title:"..." query per title.
type TitleEnumerator struct {
	searcher Searcher
	logger   logging.Logger
}

var _ Enumerator = (*TitleEnumerator)(nil)

func NewTitleEnumerator(searcher Searcher, logger logging.Logger) *TitleEnumerator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TitleEnumerator{
		searcher: searcher,
		logger:   logger.With(logging.Field{Key: "component", Value: "enumerator"}),
	}
}

// Query builds the search query for title.
func Query(title string) string {
	return fmt.Sprintf("title:%q", strings.TrimSpace(title))
}

// Enumerate searches every title concurrently. A failing title contributes
// no matches. The result keeps title order and lists every IP once, under the
// first title it matched.
func (e *TitleEnumerator) Enumerate(ctx context.Context, titles []string) []model.DeviceMatch {
	perTitle := make([][]model.DeviceMatch, len(titles))

	var g errgroup.Group
	for i, title := range titles {
		i, title := i, title
		g.Go(func() error {
			matches, err := e.searcher.Search(ctx, Query(title))
			if err != nil {
				fields := []logging.Field{
					{Key: "title", Value: title},
					{Key: "error", Value: err.Error()},
				}
				if shodan.IsRateLimit(err) {
					e.logger.Warn("search rate limited, no matches for title", fields...)
				} else {
					e.logger.Error("search failed, no matches for title", fields...)
				}
				return nil
			}
			e.logger.Info("searched title",
				logging.Field{Key: "title", Value: title},
				logging.Field{Key: "matches", Value: len(matches)})
			perTitle[i] = matches
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var out []model.DeviceMatch
	for _, matches := range perTitle {
		for _, m := range matches {
			if m.IP == "" {
				continue
			}
			if _, ok := seen[m.IP]; ok {
				continue
			}
			seen[m.IP] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
