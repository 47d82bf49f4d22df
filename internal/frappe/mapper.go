package frappe

import (
	"fmt"
	"strings"

	"github.com/mmcdole/shopsync/internal/domain"
)

// MapCounts converts a count response, rejecting missing counters
func MapCounts(r ProductCountResponse) (domain.SyncCounts, error) {
	if r.ShopifyCount == nil || r.ERPNextCount == nil || r.SyncedCount == nil {
		return domain.SyncCounts{}, fmt.Errorf("%w: product count is missing a counter", domain.ErrMalformedResponse)
	}
	return domain.SyncCounts{
		Remote: *r.ShopifyCount,
		Local:  *r.ERPNextCount,
		Synced: *r.SyncedCount,
	}, nil
}

// MapProductPage converts a listing response into a page
func MapProductPage(r ProductListResponse) (*domain.ProductPage, error) {
	if r.Products == nil {
		return nil, fmt.Errorf("%w: product listing has no products field", domain.ErrMalformedResponse)
	}

	products := make([]domain.Product, 0, len(r.Products))
	for i, p := range r.Products {
		product, err := MapProduct(p)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
		products = append(products, product)
	}

	page := &domain.ProductPage{Products: products}
	if r.NextURL != nil {
		page.Next = domain.Cursor(*r.NextURL)
	}
	if r.PrevURL != nil {
		page.Prev = domain.Cursor(*r.PrevURL)
	}
	return page, nil
}

// MapProduct converts a single product
func MapProduct(p ProductDTO) (domain.Product, error) {
	if p.ID == "" {
		return domain.Product{}, fmt.Errorf("%w: product without id", domain.ErrMalformedResponse)
	}
	if p.Synced == nil {
		return domain.Product{}, fmt.Errorf("%w: product %s has no synced flag", domain.ErrMalformedResponse, p.ID)
	}

	variants := make([]domain.Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		sku := ""
		if v.SKU != nil {
			sku = *v.SKU
		}
		variants = append(variants, domain.Variant{ID: string(v.ID), SKU: sku})
	}

	return domain.Product{
		ID:       string(p.ID),
		Title:    p.Title,
		Variants: variants,
		Synced:   *p.Synced,
	}, nil
}

// MapJobs converts RQ Job rows
func MapJobs(rows []JobDTO) []domain.Job {
	jobs := make([]domain.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, domain.Job{Name: r.Name, JobName: r.JobName, Status: r.Status})
	}
	return jobs
}

// MapProgress converts a realtime payload. The message is required.
func MapProgress(p ProgressPayload) (domain.ProgressEvent, error) {
	if p.Message == nil {
		return domain.ProgressEvent{}, fmt.Errorf("%w: progress event without message", domain.ErrMalformedResponse)
	}
	return domain.ProgressEvent{
		Message: StripMarkup(*p.Message),
		Synced:  p.Synced,
		Done:    p.Done,
		Error:   p.Error,
	}, nil
}

var markupReplacer = strings.NewReplacer(
	"<br />", "\n",
	"<br/>", "\n",
	"<br>", "\n",
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// StripMarkup turns the HTML line breaks the server appends into plain text
func StripMarkup(s string) string {
	return strings.TrimSpace(markupReplacer.Replace(s))
}
