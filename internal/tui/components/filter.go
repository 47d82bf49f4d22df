package components

import (
	"strings"

	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/sahilm/fuzzy"
)

// titleIndex implements sahilm/fuzzy.Source over lowercase product titles
type titleIndex []string

func (t titleIndex) String(i int) string { return t[i] }
func (t titleIndex) Len() int            { return len(t) }

// FilterProducts narrows products to those whose title fuzzy-matches query or whose
// SKUs contain the query letters in order. Title matches come first, best first.
func FilterProducts(products []domain.Product, query string) []domain.Product {
	query = strings.TrimSpace(query)
	if query == "" {
		return products
	}

	titles := make(titleIndex, len(products))
	for i, p := range products {
		titles[i] = strings.ToLower(p.Title)
	}

	matched := make(map[int]bool)
	out := make([]domain.Product, 0, len(products))
	for _, m := range fuzzy.FindFrom(strings.ToLower(query), titles) {
		matched[m.Index] = true
		out = append(out, products[m.Index])
	}

	for i, p := range products {
		if matched[i] {
			continue
		}
		for _, sku := range p.SKUs() {
			if sku != "" && fuzzysearch.MatchFold(query, sku) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
