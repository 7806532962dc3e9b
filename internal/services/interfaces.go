package services

import (
	"context"
	"io"

	"github.com/maxg-dev/santiscl/internal/catalog"
	domain "github.com/maxg-dev/santiscl/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	ParentProduct      = domain.ParentProduct
	ProductVariant     = domain.ProductVariant
	ProductCard        = domain.ProductCard
	ProductDetail      = domain.ProductDetail
	Attributes         = domain.Attributes
	ContactMessage     = domain.ContactMessage
	AdminAccount       = domain.AdminAccount
	UploadedImage      = domain.UploadedImage
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService manages parent products and variants for the storefront and the admin panel.
type CatalogService interface {
	ListParents(ctx context.Context) ([]ParentProduct, error)
	// ListCards pairs every parent with its default variant. Parents without variants are skipped.
	ListCards(ctx context.Context) ([]ProductCard, error)
	// GetParentAndVariants returns ErrProductNotFound when the parent does not exist.
	GetParentAndVariants(ctx context.Context, parentID string) (ProductDetail, error)
	GetVariant(ctx context.Context, parentID, variantID string) (ProductVariant, error)

	CreateParent(ctx context.Context, cmd UpsertParentCommand) (ParentProduct, error)
	UpdateParent(ctx context.Context, cmd UpsertParentCommand) (ParentProduct, error)
	// DeleteParent removes the parent, its variants and, best-effort, their images.
	DeleteParent(ctx context.Context, cmd DeleteParentCommand) error

	CreateVariant(ctx context.Context, cmd UpsertVariantCommand) (ProductVariant, error)
	UpdateVariant(ctx context.Context, cmd UpsertVariantCommand) (ProductVariant, error)
	DeleteVariant(ctx context.Context, cmd DeleteVariantCommand) error
	SetDefaultVariant(ctx context.Context, cmd SetDefaultVariantCommand) error
}

// StorefrontService builds the public listing and category pages.
type StorefrontService interface {
	// Listing returns the grouped home page, or search results when query is not blank.
	Listing(ctx context.Context, query string) (StorefrontListing, error)
	Categories(ctx context.Context) ([]CategorySummary, error)
	CategoryPage(ctx context.Context, slug string) (CategoryPage, error)
}

// ProductPageService resolves the variant shown on a product page from the shareable reference.
type ProductPageService interface {
	Resolve(ctx context.Context, req ProductPageRequest) (ProductPage, error)
}

// ContactService accepts contact form submissions and lists them for admins.
type ContactService interface {
	Submit(ctx context.Context, cmd SubmitContactCommand) (ContactMessage, error)
	List(ctx context.Context, pager Pagination) (domain.CursorPage[ContactMessage], error)
}

// AdminAuthService signs admins in and out of the panel.
type AdminAuthService interface {
	SignIn(ctx context.Context, cmd SignInCommand) (AdminSession, error)
	SignOut(ctx context.Context, uid string) error
	// CurrentAdmin reports the admin authenticated on ctx.
	CurrentAdmin(ctx context.Context) (AdminIdentity, bool)
	CreateAdmin(ctx context.Context, cmd CreateAdminCommand) (AdminAccount, error)
}

// MediaService stores product images.
type MediaService interface {
	// Upload writes every file or none of them.
	Upload(ctx context.Context, files []UploadFile) ([]UploadedImage, error)
	// Delete removes the referenced images, logging failures instead of returning them.
	Delete(ctx context.Context, urls ...string)
}

// InventoryService applies bulk stock changes.
type InventoryService interface {
	SetStockForAll(ctx context.Context, cmd SetStockCommand) (StockUpdateResult, error)
}

// ExportService writes catalog spreadsheets.
type ExportService interface {
	ExportCatalog(ctx context.Context, w io.Writer) (ExportSummary, error)
}

// SystemService exposes health information.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// UpsertParentCommand creates or updates a parent. ID is required for updates.
type UpsertParentCommand struct {
	ID                string
	Name              string `json:"name" validate:"required,max=120"`
	Description       string `json:"description" validate:"max=5000"`
	Category          string `json:"category" validate:"required"`
	Highlighted       bool   `json:"highlighted"`
	AgeRecommendation string `json:"ageRecommendation" validate:"max=60"`
	ActorID           string
}

// DeleteParentCommand deletes a parent with all of its variants.
type DeleteParentCommand struct {
	ParentID string
	ActorID  string
}

// UpsertVariantCommand creates or updates a variant. VariantID is required for updates.
type UpsertVariantCommand struct {
	ParentID    string
	VariantID   string
	VariantName string            `json:"variantName" validate:"required,max=120"`
	Price       int64             `json:"price" validate:"min=0"`
	Images      []string          `json:"images" validate:"max=12,dive,url"`
	Description string            `json:"description" validate:"max=5000"`
	Dimensions  string            `json:"dimensions" validate:"max=200"`
	Stock       int               `json:"stock" validate:"min=0"`
	Attributes  map[string]string `json:"attributes"`
	IsDefault   bool              `json:"isDefault"`
	ActorID     string
}

// DeleteVariantCommand deletes one variant.
type DeleteVariantCommand struct {
	ParentID  string
	VariantID string
	ActorID   string
}

// SetDefaultVariantCommand marks a variant as the parent's default.
type SetDefaultVariantCommand struct {
	ParentID  string
	VariantID string
	ActorID   string
}

// StorefrontListing is the public product listing.
type StorefrontListing struct {
	Query     string
	Buckets   []catalog.Bucket
	Results   []ProductCard
	Searching bool
}

// CategorySummary is one entry of the category index.
type CategorySummary struct {
	Category catalog.Category
	Count    int
}

// CategoryPage lists the products of one category.
type CategoryPage struct {
	Category catalog.Category
	Found    bool
	Cards    []ProductCard
}

// ProductPageRequest identifies a product page and the caller's current choice.
type ProductPageRequest struct {
	ParentID string
	// VariantID is the shareable reference from the URL.
	VariantID string
	// Choices change attributes after the initial resolution, applied in order.
	Choices []AttributeChoice
}

// AttributeChoice sets one axis to a value.
type AttributeChoice struct {
	Axis  string
	Value string
}

// ProductPage is the resolved product view.
type ProductPage struct {
	Parent      ParentProduct
	Variants    []ProductVariant
	Selected    ProductVariant
	Axes        []catalog.AttributeAxis
	Selection   catalog.Selection
	ShowOptions bool
	// Matched is false when an attribute change had no matching variant.
	Matched   bool
	MainImage string
	// CanonicalVariantID is the reference the URL should carry.
	CanonicalVariantID string
	Presentation       ProductPresentation
}

// ProductPresentation carries display strings for the selected variant.
type ProductPresentation struct {
	Price           string
	StockLabel      string
	Description     string
	DescriptionHTML string
	Dimensions      string
	CategoryLabel   string
	CategoryEmoji   string
	InquiryLink     string
}

// SubmitContactCommand is a contact form submission.
type SubmitContactCommand struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

// SignInCommand carries admin credentials.
type SignInCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminSession is the result of a successful admin sign-in.
type AdminSession struct {
	UID           string
	Email         string
	SessionCookie string
	ExpiresIn     int64
}

// AdminIdentity is the admin bound to a request.
type AdminIdentity struct {
	UID   string
	Email string
}

// CreateAdminCommand provisions an admin account.
type CreateAdminCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UploadFile is one image submitted for upload.
type UploadFile struct {
	FileName    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// SetStockCommand sets the same stock on every variant.
type SetStockCommand struct {
	Stock   int
	ActorID string
}

// StockUpdateResult reports a bulk stock change.
type StockUpdateResult struct {
	Updated int
	Stock   int
}

// ExportSummary describes a written spreadsheet.
type ExportSummary struct {
	Parents  int
	Variants int
}
