package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/maxg-dev/santiscl/internal/handlers"
	"github.com/maxg-dev/santiscl/internal/platform/auth"
	"github.com/maxg-dev/santiscl/internal/platform/config"
	"github.com/maxg-dev/santiscl/internal/platform/events"
	"github.com/maxg-dev/santiscl/internal/platform/mailer"
	"github.com/maxg-dev/santiscl/internal/platform/observability"
	"github.com/maxg-dev/santiscl/internal/platform/richtext"
	"github.com/maxg-dev/santiscl/internal/repositories"
	"github.com/maxg-dev/santiscl/internal/services"
)

const (
	contactRateLimit  = 5
	contactRateWindow = 10 * time.Minute
)

// Infrastructure carries the external clients the services are built on. Nil members
// disable the services that need them.
type Infrastructure struct {
	Passwords services.PasswordVerifier
	Identity  services.IdentityAdmin
	Verifier  auth.SessionVerifier
	Objects   services.ObjectStore
	Publisher events.Publisher
	Mailer    mailer.Mailer
	Meter     metric.Meter
	Logger    *zap.Logger
	Build     services.BuildInfo
	Clock     func() time.Time
	// SecureCookies marks the admin session cookie Secure.
	SecureCookies bool
}

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog      services.CatalogService
	Storefront   services.StorefrontService
	ProductPages services.ProductPageService
	Contacts     services.ContactService
	AdminAuth    services.AdminAuthService
	Media        services.MediaService
	Inventory    services.InventoryService
	Export       services.ExportService
	System       services.SystemService
}

// Container wires repositories, services, and handlers for runtime use.
type Container struct {
	Config        config.Config
	Repositories  repositories.Registry
	Services      Services
	Authenticator *auth.Authenticator

	infra Infrastructure
}

// NewContainer constructs the runtime dependencies. Tests can supply in-memory registries.
func NewContainer(cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	if infra.Logger == nil {
		infra.Logger = zap.NewNop()
	}
	if infra.Clock == nil {
		infra.Clock = time.Now
	}
	if infra.Publisher == nil {
		infra.Publisher = events.NopPublisher{}
	}
	if infra.Mailer == nil {
		infra.Mailer = mailer.Nop{}
	}

	svc, err := buildServices(reg, cfg, infra)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
		infra:        infra,
	}
	if infra.Verifier != nil && reg.Admins() != nil {
		c.Authenticator = auth.NewAuthenticator(infra.Verifier, services.AdminRegistryChecker(reg.Admins()))
	}
	return c, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

// PublicRoutes registers the storefront and the contact form.
func (c *Container) PublicRoutes() handlers.RouteRegistrar {
	storefront := handlers.NewStorefrontHandlers(c.Services.Storefront, c.Services.ProductPages)
	contact := handlers.NewContactHandlers(c.Services.Contacts,
		handlers.WithContactRateLimit(contactRateLimit, contactRateWindow, c.infra.Clock))
	return func(r chi.Router) {
		storefront.Routes(r)
		contact.PublicRoutes(r)
	}
}

// AdminRoutes registers the session endpoints and everything behind the admin guard.
func (c *Container) AdminRoutes() handlers.RouteRegistrar {
	session := handlers.NewAdminSessionHandlers(c.Authenticator, c.Services.AdminAuth, c.infra.SecureCookies)
	catalog := handlers.NewAdminCatalogHandlers(c.Authenticator, c.Services.Catalog,
		handlers.WithAdminMediaService(c.Services.Media),
		handlers.WithAdminInventoryService(c.Services.Inventory),
		handlers.WithAdminExportService(c.Services.Export),
		handlers.WithAdminUploadLimit(c.Config.Storage.MaxUploadBytes),
	)
	contacts := handlers.NewContactHandlers(c.Services.Contacts)
	// A nil authenticator answers 503 on every guarded route.
	guard := c.Authenticator.RequireAdmin()
	return func(r chi.Router) {
		session.Routes(r)
		catalog.Routes(r)
		r.Group(func(g chi.Router) {
			g.Use(guard)
			contacts.AdminRoutes(g)
		})
	}
}

// HealthHandlers builds the probe handlers.
func (c *Container) HealthHandlers() *handlers.HealthHandlers {
	opts := []handlers.HealthOption{
		handlers.WithHealthBuildInfo(c.infra.Build),
		handlers.WithHealthClock(c.infra.Clock),
	}
	if c.Services.System != nil {
		opts = append(opts, handlers.WithHealthSystemService(c.Services.System))
	}
	return handlers.NewHealthHandlers(opts...)
}

func buildServices(reg repositories.Registry, cfg config.Config, infra Infrastructure) (Services, error) {
	var svc Services
	logger := infra.Logger

	if media := infra.Objects; media != nil {
		mediaSvc, err := services.NewMediaService(services.MediaServiceDeps{
			Objects:  media,
			Prefix:   cfg.Storage.ObjectPrefix,
			MaxBytes: cfg.Storage.MaxUploadBytes,
			Clock:    infra.Clock,
			Logger:   observability.EventLogger(logger, "media"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build media service: %w", err)
		}
		svc.Media = mediaSvc
	}

	if catalogRepo := reg.Catalog(); catalogRepo != nil {
		catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
			Catalog: catalogRepo,
			Media:   svc.Media,
			Events:  infra.Publisher,
			Clock:   infra.Clock,
			Logger:  observability.EventLogger(logger, "catalog"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build catalog service: %w", err)
		}
		svc.Catalog = catalogSvc

		storefrontSvc, err := services.NewStorefrontService(services.StorefrontServiceDeps{
			Catalog: catalogSvc,
			Logger:  observability.EventLogger(logger, "storefront"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build storefront service: %w", err)
		}
		svc.Storefront = storefrontSvc

		pageSvc, err := services.NewProductPageService(services.ProductPageServiceDeps{
			Catalog:          catalogSvc,
			Renderer:         richtext.NewRenderer(),
			WhatsAppNumber:   cfg.Storefront.WhatsAppNumber,
			PlaceholderImage: cfg.Storefront.PlaceholderImage,
			Meter:            infra.Meter,
			Logger:           observability.EventLogger(logger, "product_page"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build product page service: %w", err)
		}
		svc.ProductPages = pageSvc

		inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
			Catalog: catalogRepo,
			Events:  infra.Publisher,
			Clock:   infra.Clock,
			Logger:  observability.EventLogger(logger, "inventory"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build inventory service: %w", err)
		}
		svc.Inventory = inventorySvc

		exportSvc, err := services.NewExportService(services.ExportServiceDeps{Catalog: catalogRepo})
		if err != nil {
			return Services{}, fmt.Errorf("build export service: %w", err)
		}
		svc.Export = exportSvc
	}

	if contactRepo := reg.Contacts(); contactRepo != nil {
		contactSvc, err := services.NewContactService(services.ContactServiceDeps{
			Contacts:      contactRepo,
			Events:        infra.Publisher,
			Mailer:        infra.Mailer,
			NotifyAddress: cfg.Mail.NotifyAddress,
			Clock:         infra.Clock,
			Logger:        observability.EventLogger(logger, "contact"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build contact service: %w", err)
		}
		svc.Contacts = contactSvc
	}

	if adminRepo := reg.Admins(); adminRepo != nil && infra.Passwords != nil && infra.Identity != nil {
		authSvc, err := services.NewAdminAuthService(services.AdminAuthServiceDeps{
			Passwords:  infra.Passwords,
			Identity:   infra.Identity,
			Admins:     adminRepo,
			SessionTTL: cfg.Firebase.SessionTTL,
			Clock:      infra.Clock,
			Logger:     observability.EventLogger(logger, "admin_auth"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build admin auth service: %w", err)
		}
		svc.AdminAuth = authSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            infra.Clock,
			Build:            infra.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
