package domain

import "time"

// Attributes is the open attribute bag carried by a variant (e.g. color, size).
type Attributes map[string]string

// Clone returns a shallow copy so callers can mutate without aliasing the source.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ParentProduct is the conceptual item customers browse.
type ParentProduct struct {
	ID                string
	Name              string
	Description       string
	Category          string
	Highlighted       bool
	AgeRecommendation string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProductVariant is a purchasable version of a parent distinguished by attribute values.
type ProductVariant struct {
	ID          string
	ParentID    string
	VariantName string
	Price       int64
	Images      []string
	Description string
	Dimensions  string
	Stock       int
	Attributes  Attributes
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PrimaryImage returns the first image reference or an empty string.
func (v ProductVariant) PrimaryImage() string {
	if len(v.Images) == 0 {
		return ""
	}
	return v.Images[0]
}

// ProductCard pairs a parent with the variant shown for it in listings.
type ProductCard struct {
	Parent         ParentProduct
	DefaultVariant ProductVariant
}

// ProductDetail bundles a parent with all of its variants in name order.
type ProductDetail struct {
	Parent   ParentProduct
	Variants []ProductVariant
}

// ContactMessage is a message submitted through the public contact form.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}

// AdminAccount is an entry in the admin registry.
type AdminAccount struct {
	UID       string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// UploadedImage describes an object written to the product image bucket.
type UploadedImage struct {
	ObjectName  string
	URL         string
	ContentType string
	Size        int64
}

// Pagination captures cursor-based pagination input.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage represents a paginated list response.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
