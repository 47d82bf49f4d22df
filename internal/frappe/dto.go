package frappe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Response schemas for the whitelisted methods the importer page calls.
// Required fields are plain values or checked pointers; optional ones are pointers.

// methodResponse is the envelope of every /api/method call
type methodResponse struct {
	Message json.RawMessage `json:"message"`
}

// errorResponse is the body Frappe returns alongside a 4xx/5xx status
type errorResponse struct {
	ExcType        string `json:"exc_type"`
	Exception      string `json:"exception"`
	ServerMessages string `json:"_server_messages"` // JSON list of JSON-encoded {"message": ...}
	Message        string `json:"message"`
}

// ProductCountResponse is returned by get_product_count
type ProductCountResponse struct {
	ShopifyCount *int `json:"shopifyCount"`
	ERPNextCount *int `json:"erpnextCount"`
	SyncedCount  *int `json:"syncedCount"`
}

// ProductListResponse is returned by get_shopify_products
type ProductListResponse struct {
	Products []ProductDTO `json:"products"`
	NextURL  *string      `json:"nextUrl,omitempty"`
	PrevURL  *string      `json:"prevUrl,omitempty"`
}

// ProductDTO is a Shopify product dict with the server-added synced flag.
// Only the fields the browser renders are decoded.
type ProductDTO struct {
	ID       FlexibleID   `json:"id"`
	Title    string       `json:"title"`
	Variants []VariantDTO `json:"variants,omitempty"`
	Synced   *bool        `json:"synced"`
}

// VariantDTO is a product variant
type VariantDTO struct {
	ID  FlexibleID `json:"id"`
	SKU *string    `json:"sku"`
}

// JobDTO is a row of the "RQ Job" virtual doctype
type JobDTO struct {
	Name    string `json:"name"`
	JobName string `json:"job_name"`
	Status  string `json:"status"`
}

// resourceListResponse is the envelope of /api/resource list calls
type resourceListResponse struct {
	Data []JobDTO `json:"data"`
}

// ProgressPayload is published on the bulk sync realtime event
type ProgressPayload struct {
	Message *string `json:"message"`
	Synced  bool    `json:"synced,omitempty"`
	Done    bool    `json:"done,omitempty"`
	Error   bool    `json:"error,omitempty"`
}

// FlexibleID accepts both JSON numbers and strings; Shopify ids are 64-bit integers
// that some serializers quote.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexibleID(n.String())
	return nil
}
