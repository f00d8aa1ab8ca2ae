package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ResultsPerQuery is how many hits of each query reach the prompt.
const ResultsPerQuery = 3

// Augmentation is the formatted search context for one plan.
type Augmentation struct {
	Text    string
	Sources []string
}

// Augmenter runs the fixed query set for a region and plan type.
type Augmenter struct {
	searcher Searcher
	log      *slog.Logger
}

func NewAugmenter(s Searcher, log *slog.Logger) *Augmenter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Augmenter{searcher: s, log: log}
}

// Queries returns the four queries issued for a plan, in output order.
func Queries(region, planType string) []string {
	return []string{
		fmt.Sprintf("%s %s 发展规划", region, planType),
		fmt.Sprintf("%s 产业发展 政策", region),
		fmt.Sprintf("%s 国家政策 指导意见", planType),
		fmt.Sprintf("%s 经济发展 数据 统计", region),
	}
}

// Augment runs every query concurrently. A failed or empty query contributes
// nothing; the rest are concatenated in query order. Augment never fails.
func (a *Augmenter) Augment(ctx context.Context, region, planType string) Augmentation {
	queries := Queries(region, planType)
	results := make([][]Result, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			hits, err := a.searcher.Search(gctx, q)
			if err != nil {
				a.log.Warn("web search failed", "query", q, "error", err)
				return nil
			}
			if len(hits) > ResultsPerQuery {
				hits = hits[:ResultsPerQuery]
			}
			results[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	var (
		b       strings.Builder
		sources []string
	)
	for i, q := range queries {
		hits := results[i]
		if len(hits) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\n## %s 搜索结果:\n", q)
		for j, r := range hits {
			fmt.Fprintf(&b, "%d. %s\n%s\n来源: %s\n\n", j+1, r.Title, r.Snippet, r.Link)
			sources = append(sources, r.Title)
		}
	}
	a.log.Info("web search complete", "queries", len(queries), "sources", len(sources))
	return Augmentation{Text: b.String(), Sources: sources}
}
