// Package catalog talks to the external product backend and derives the
// browsable product view from its responses.
package catalog

import (
	"io"
	"strings"
	"time"
)

// Product is the backend's product record. The backend owns and mutates it;
// the storefront only ever holds a cached, possibly-stale copy.
type Product struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductForm carries the fields of a create/update request. Image is
// optional; when set it is streamed as a multipart file part.
type ProductForm struct {
	Name        string
	Description string
	Price       int64
	ImageName   string
	Image       io.Reader
}

// ImageURL resolves a product image reference against the uploads base URL.
// Absolute URLs are used verbatim; relative filenames are resolved against
// the uploads base; an empty reference stays empty.
func ImageURL(uploadsBase, image string) string {
	if image == "" {
		return ""
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	return strings.TrimSuffix(uploadsBase, "/") + "/" + image
}
