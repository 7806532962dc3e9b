// Command catalogctl runs operator tasks against the storefront catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/maxg-dev/santiscl/internal/platform/auth"
	"github.com/maxg-dev/santiscl/internal/platform/config"
	pfirestore "github.com/maxg-dev/santiscl/internal/platform/firestore"
	"github.com/maxg-dev/santiscl/internal/platform/observability"
	"github.com/maxg-dev/santiscl/internal/platform/secrets"
	firestoreRepo "github.com/maxg-dev/santiscl/internal/repositories/firestore"
	"github.com/maxg-dev/santiscl/internal/services"
)

const actorID = "catalogctl"

var errUsage = errors.New("usage")

const usage = `usage: catalogctl <command> [flags]

commands:
  create-admin -email <email> -password <password>
  set-stock    -value <n>
  export       -out <file.xlsx>
  seed         -file <catalog.yaml>
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "catalogctl: %v\n", err)
		os.Exit(1)
	}
}

// command is one parsed subcommand bound to its runtime.
type command struct {
	name string
	exec func(ctx context.Context, rt *runtime, out io.Writer) error
}

func parse(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errUsage
	}
	name, rest := args[0], args[1:]
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch name {
	case "create-admin":
		email := fs.String("email", "", "admin email")
		password := fs.String("password", "", "admin password")
		if err := fs.Parse(rest); err != nil {
			return command{}, fmt.Errorf("%w: %v", errUsage, err)
		}
		if strings.TrimSpace(*email) == "" || *password == "" {
			return command{}, fmt.Errorf("%w: -email and -password are required", errUsage)
		}
		return command{name: name, exec: func(ctx context.Context, rt *runtime, out io.Writer) error {
			return createAdmin(ctx, rt, out, *email, *password)
		}}, nil
	case "set-stock":
		value := fs.Int("value", -1, "stock applied to every variant")
		if err := fs.Parse(rest); err != nil {
			return command{}, fmt.Errorf("%w: %v", errUsage, err)
		}
		if *value < 0 {
			return command{}, fmt.Errorf("%w: -value must be zero or greater", errUsage)
		}
		return command{name: name, exec: func(ctx context.Context, rt *runtime, out io.Writer) error {
			return setStock(ctx, rt.inventory, out, *value)
		}}, nil
	case "export":
		path := fs.String("out", "catalogo.xlsx", "destination spreadsheet")
		if err := fs.Parse(rest); err != nil {
			return command{}, fmt.Errorf("%w: %v", errUsage, err)
		}
		return command{name: name, exec: func(ctx context.Context, rt *runtime, out io.Writer) error {
			return exportCatalog(ctx, rt.export, out, *path)
		}}, nil
	case "seed":
		path := fs.String("file", "", "catalog seed file")
		if err := fs.Parse(rest); err != nil {
			return command{}, fmt.Errorf("%w: %v", errUsage, err)
		}
		if strings.TrimSpace(*path) == "" {
			return command{}, fmt.Errorf("%w: -file is required", errUsage)
		}
		return command{name: name, exec: func(ctx context.Context, rt *runtime, out io.Writer) error {
			f, err := os.Open(*path)
			if err != nil {
				return err
			}
			defer f.Close()
			seed, err := loadSeed(f)
			if err != nil {
				return err
			}
			return applySeed(ctx, rt.catalog, out, seed)
		}}, nil
	default:
		return command{}, fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd, err := parse(args)
	if err != nil {
		return err
	}

	envValues, err := config.EnvironmentValues()
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	logger, err := observability.NewLogger(envValues["STORE_LOG_LEVEL"], zap.String("service", "catalogctl"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	rt, err := newRuntime(ctx, logger, envValues, cmd.name == "create-admin")
	if err != nil {
		return err
	}
	defer rt.close()

	return cmd.exec(ctx, rt, out)
}

// runtime holds the services a command may use.
type runtime struct {
	catalog   services.CatalogService
	inventory services.InventoryService
	export    services.ExportService
	adminAuth services.AdminAuthService

	closers []func() error
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

func newRuntime(ctx context.Context, logger *zap.Logger, env map[string]string, needIdentity bool) (*runtime, error) {
	rt := &runtime{}

	fetcherOpts := []secrets.Option{secrets.WithLogger(logger.Named("secrets"))}
	if project := strings.TrimSpace(env["STORE_FIREBASE_PROJECT_ID"]); project != "" {
		fetcherOpts = append(fetcherOpts, secrets.WithProject(project))
	}
	if path := strings.TrimSpace(env["STORE_SECRETS_FALLBACK_FILE"]); path != "" {
		fetcherOpts = append(fetcherOpts, secrets.WithFallbackFile(path))
	}
	fetcher, err := secrets.NewFetcher(ctx, fetcherOpts...)
	if err != nil {
		return nil, fmt.Errorf("init secret fetcher: %w", err)
	}
	rt.closers = append(rt.closers, fetcher.Close)

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	rt.closers = append(rt.closers, provider.Close)
	registry, err := firestoreRepo.NewRegistry(provider, time.Now)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("init repositories: %w", err)
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: registry.Catalog(),
		Logger:  observability.EventLogger(logger, "catalog"),
	})
	if err != nil {
		rt.close()
		return nil, err
	}
	inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
		Catalog: registry.Catalog(),
		Logger:  observability.EventLogger(logger, "inventory"),
	})
	if err != nil {
		rt.close()
		return nil, err
	}
	exportSvc, err := services.NewExportService(services.ExportServiceDeps{Catalog: registry.Catalog()})
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.catalog, rt.inventory, rt.export = catalogSvc, inventorySvc, exportSvc

	if needIdentity {
		identity, err := auth.NewFirebaseClient(ctx, cfg.Firebase)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("init firebase: %w", err)
		}
		authSvc, err := services.NewAdminAuthService(services.AdminAuthServiceDeps{
			Identity: identity,
			Admins:   registry.Admins(),
			Logger:   observability.EventLogger(logger, "admin_auth"),
		})
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.adminAuth = authSvc
	}
	return rt, nil
}

func createAdmin(ctx context.Context, rt *runtime, out io.Writer, email, password string) error {
	account, err := rt.adminAuth.CreateAdmin(ctx, services.CreateAdminCommand{Email: email, Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "admin %s created (uid %s)\n", account.Email, account.UID)
	return nil
}

func setStock(ctx context.Context, inventory services.InventoryService, out io.Writer, value int) error {
	result, err := inventory.SetStockForAll(ctx, services.SetStockCommand{Stock: value, ActorID: actorID})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "stock set to %d on %d variants\n", result.Stock, result.Updated)
	return nil
}

func exportCatalog(ctx context.Context, export services.ExportService, out io.Writer, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	summary, err := export.ExportCatalog(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exported %d parents and %d variants to %s\n", summary.Parents, summary.Variants, path)
	return nil
}
