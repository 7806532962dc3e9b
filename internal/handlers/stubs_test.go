package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	firebaseauth "firebase.google.com/go/v4/auth"

	domain "github.com/maxg-dev/santiscl/internal/domain"
	"github.com/maxg-dev/santiscl/internal/platform/auth"
	"github.com/maxg-dev/santiscl/internal/services"
)

const (
	testAdminUID    = "admin-1"
	testAdminCookie = "valid-session"
)

type stubVerifier struct{}

func (stubVerifier) VerifySession(_ context.Context, cookie string) (*firebaseauth.Token, error) {
	switch cookie {
	case testAdminCookie:
		return &firebaseauth.Token{UID: testAdminUID, Claims: map[string]interface{}{"email": "admin@santis.cl"}}, nil
	case "customer-session":
		return &firebaseauth.Token{UID: "customer-1"}, nil
	default:
		return nil, errors.New("invalid session")
	}
}

func (stubVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return nil, errors.New("id tokens not accepted")
}

func newTestAuthenticator() *auth.Authenticator {
	return auth.NewAuthenticator(stubVerifier{}, func(_ context.Context, uid string) (bool, error) {
		return uid == testAdminUID, nil
	})
}

func withAdminCookie(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: testAdminCookie})
	return req
}

type stubStorefrontService struct {
	listing    services.StorefrontListing
	categories []services.CategorySummary
	page       services.CategoryPage
	err        error
	lastQuery  string
	lastSlug   string
}

func (s *stubStorefrontService) Listing(_ context.Context, query string) (services.StorefrontListing, error) {
	s.lastQuery = query
	return s.listing, s.err
}

func (s *stubStorefrontService) Categories(context.Context) ([]services.CategorySummary, error) {
	return s.categories, s.err
}

func (s *stubStorefrontService) CategoryPage(_ context.Context, slug string) (services.CategoryPage, error) {
	s.lastSlug = slug
	return s.page, s.err
}

type stubProductPageService struct {
	page    services.ProductPage
	err     error
	lastReq services.ProductPageRequest
}

func (s *stubProductPageService) Resolve(_ context.Context, req services.ProductPageRequest) (services.ProductPage, error) {
	s.lastReq = req
	return s.page, s.err
}

type stubContactService struct {
	submitted []services.SubmitContactCommand
	submitErr error
	page      domain.CursorPage[services.ContactMessage]
	lastPager services.Pagination
}

func (s *stubContactService) Submit(_ context.Context, cmd services.SubmitContactCommand) (services.ContactMessage, error) {
	s.submitted = append(s.submitted, cmd)
	if s.submitErr != nil {
		return services.ContactMessage{}, s.submitErr
	}
	return services.ContactMessage{ID: "msg-1", Name: cmd.Name, Email: cmd.Email, Subject: cmd.Subject, Message: cmd.Message}, nil
}

func (s *stubContactService) List(_ context.Context, pager services.Pagination) (domain.CursorPage[services.ContactMessage], error) {
	s.lastPager = pager
	return s.page, nil
}

type stubCatalogService struct {
	services.CatalogService

	parents       []services.ParentProduct
	detail        services.ProductDetail
	err           error
	parentCmd     services.UpsertParentCommand
	variantCmd    services.UpsertVariantCommand
	deletedParent services.DeleteParentCommand
	deletedVar    services.DeleteVariantCommand
	defaultCmd    services.SetDefaultVariantCommand
}

func (s *stubCatalogService) ListParents(context.Context) ([]services.ParentProduct, error) {
	return s.parents, s.err
}

func (s *stubCatalogService) GetParentAndVariants(context.Context, string) (services.ProductDetail, error) {
	return s.detail, s.err
}

func (s *stubCatalogService) CreateParent(_ context.Context, cmd services.UpsertParentCommand) (services.ParentProduct, error) {
	s.parentCmd = cmd
	return services.ParentProduct{ID: "parent-new", Name: cmd.Name, Category: cmd.Category}, s.err
}

func (s *stubCatalogService) UpdateParent(_ context.Context, cmd services.UpsertParentCommand) (services.ParentProduct, error) {
	s.parentCmd = cmd
	return services.ParentProduct{ID: cmd.ID, Name: cmd.Name, Category: cmd.Category}, s.err
}

func (s *stubCatalogService) DeleteParent(_ context.Context, cmd services.DeleteParentCommand) error {
	s.deletedParent = cmd
	return s.err
}

func (s *stubCatalogService) CreateVariant(_ context.Context, cmd services.UpsertVariantCommand) (services.ProductVariant, error) {
	s.variantCmd = cmd
	return services.ProductVariant{ID: "variant-new", ParentID: cmd.ParentID, VariantName: cmd.VariantName, Price: cmd.Price, Attributes: cmd.Attributes}, s.err
}

func (s *stubCatalogService) UpdateVariant(_ context.Context, cmd services.UpsertVariantCommand) (services.ProductVariant, error) {
	s.variantCmd = cmd
	return services.ProductVariant{ID: cmd.VariantID, ParentID: cmd.ParentID, VariantName: cmd.VariantName}, s.err
}

func (s *stubCatalogService) DeleteVariant(_ context.Context, cmd services.DeleteVariantCommand) error {
	s.deletedVar = cmd
	return s.err
}

func (s *stubCatalogService) SetDefaultVariant(_ context.Context, cmd services.SetDefaultVariantCommand) error {
	s.defaultCmd = cmd
	return s.err
}

type stubMediaService struct {
	uploaded [][]byte
	names    []string
	deleted  []string
	err      error
}

func (s *stubMediaService) Upload(_ context.Context, files []services.UploadFile) ([]services.UploadedImage, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]services.UploadedImage, 0, len(files))
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		s.uploaded = append(s.uploaded, data)
		s.names = append(s.names, f.FileName)
		out = append(out, services.UploadedImage{
			ObjectName:  "products/" + f.FileName,
			URL:         "https://storage.googleapis.com/santis-test/products/" + f.FileName,
			ContentType: f.ContentType,
			Size:        int64(len(data)),
		})
	}
	return out, nil
}

func (s *stubMediaService) Delete(_ context.Context, urls ...string) {
	s.deleted = append(s.deleted, urls...)
}

type stubInventoryService struct {
	cmd services.SetStockCommand
	err error
}

func (s *stubInventoryService) SetStockForAll(_ context.Context, cmd services.SetStockCommand) (services.StockUpdateResult, error) {
	s.cmd = cmd
	if s.err != nil {
		return services.StockUpdateResult{}, s.err
	}
	return services.StockUpdateResult{Updated: 3, Stock: cmd.Stock}, nil
}

type stubExportService struct{}

func (stubExportService) ExportCatalog(_ context.Context, w io.Writer) (services.ExportSummary, error) {
	_, err := w.Write([]byte("PK-sheet"))
	return services.ExportSummary{Parents: 1, Variants: 2}, err
}

type stubAdminAuthService struct {
	session   services.AdminSession
	signInErr error
	signInCmd services.SignInCommand
	signedOut []string
}

func (s *stubAdminAuthService) SignIn(_ context.Context, cmd services.SignInCommand) (services.AdminSession, error) {
	s.signInCmd = cmd
	return s.session, s.signInErr
}

func (s *stubAdminAuthService) SignOut(_ context.Context, uid string) error {
	s.signedOut = append(s.signedOut, uid)
	return nil
}

func (s *stubAdminAuthService) CurrentAdmin(ctx context.Context) (services.AdminIdentity, bool) {
	admin, ok := auth.AdminFromContext(ctx)
	if !ok {
		return services.AdminIdentity{}, false
	}
	return services.AdminIdentity{UID: admin.UID, Email: admin.Email}, true
}

func (s *stubAdminAuthService) CreateAdmin(context.Context, services.CreateAdminCommand) (services.AdminAccount, error) {
	return services.AdminAccount{}, errors.New("not used")
}

var (
	_ services.StorefrontService  = (*stubStorefrontService)(nil)
	_ services.ProductPageService = (*stubProductPageService)(nil)
	_ services.ContactService     = (*stubContactService)(nil)
	_ services.MediaService       = (*stubMediaService)(nil)
	_ services.InventoryService   = (*stubInventoryService)(nil)
	_ services.ExportService      = stubExportService{}
	_ services.AdminAuthService   = (*stubAdminAuthService)(nil)
)
