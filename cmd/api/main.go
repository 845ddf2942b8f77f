package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/stockledger-api/internal/application/analytics"
	"github.com/jhoicas/stockledger-api/internal/application/billing"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/returns"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/cache"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/stockledger-api/internal/infrastructure/pdf"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/seed"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/txretry"
	httpRouter "github.com/jhoicas/stockledger-api/internal/interfaces/http"
	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

// storage repositorios de lectura y el TxRunner de un driver.
type storage struct {
	runner     inventory.TxRunner
	customers  repository.CustomerRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	movements  repository.StockMovementRepository
	balances   repository.StockBalanceRepository
	invoices   repository.InvoiceRepository
	returns    repository.ReturnRepository
	activity   repository.CustomerActivityRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.Ledger.Storage).
		Str("auth_mode", cfg.Auth.Mode).
		Msg("iniciando aplicación")

	loc, err := cfg.Ledger.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria")
	}

	var m *metrics.Metrics
	var observer inventory.Observer
	var retryHook func(int, error)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		observer = m
		retryHook = m.RetryHook(cfg.Ledger.Storage)
	}
	policy := txretry.Policy{
		MaxAttempts: cfg.Ledger.TxMaxAttempts,
		BaseDelay:   cfg.Ledger.TxRetryBaseDelay,
		MaxDelay:    time.Second,
	}
	onRetry := func(attempt int, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Msg("reintentando transacción")
		if retryHook != nil {
			retryHook(attempt, err)
		}
	}

	ctx := context.Background()
	var st storage
	switch cfg.Ledger.Storage {
	case "memory":
		st, err = openMemory(ctx, cfg, policy, onRetry)
	default:
		st, err = openPostgres(ctx, cfg, policy, onRetry)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	var idemCache billing.IdempotencyCache
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		idemCache = cache.NewIdempotencyCache(rdb, cfg.Redis.TTL)
		log.Info().Dur("ttl", cfg.Redis.TTL).Msg("caché de idempotencia en Redis activa")
	}

	ledger := inventory.NewLedger(observer)
	movementUC := inventory.NewMovementUseCase(st.runner, ledger, st.movements, st.products, st.warehouses)
	balanceUC := inventory.NewBalanceProjector(st.balances, st.movements, st.products, st.warehouses)
	invoiceUC := billing.NewCreateInvoiceUseCase(st.runner, ledger, idemCache,
		st.customers, st.products, st.warehouses, st.invoices, log)
	pdfUC := billing.NewPDFUseCase(invoiceUC, infrapdf.NewMarotoPDFGenerator(cfg.App.Name))
	returnUC := returns.NewUseCase(st.runner, ledger, st.returns, st.customers, st.products, st.warehouses, log)
	ledgerUC := analytics.NewCustomerLedgerUseCase(st.activity, st.customers, loc)

	opts := httpRouter.AppOptions{
		Name:        cfg.App.Name,
		BodyLimit:   cfg.HTTP.BodyLimit,
		Log:         log.Named("http"),
		SwaggerFile: "./docs/swagger.json",
	}
	if m != nil {
		opts.Metrics = m
	}
	app := httpRouter.NewApp(opts)
	httpRouter.Router(app, httpRouter.RouterDeps{
		Movements:      movementUC,
		Balances:       balanceUC,
		Invoices:       invoiceUC,
		InvoicePDF:     pdfUC,
		Returns:        returnUC,
		CustomerLedger: ledgerUC,
		Location:       loc,
		AuthMode:       cfg.Auth.Mode,
		JWTSecret:      cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openPostgres(ctx context.Context, cfg *config.Config, policy txretry.Policy, onRetry func(int, error)) (storage, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return storage{}, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return storage{}, err
		}
	}
	if cfg.Ledger.SeedFile != "" {
		if err := applySeed(ctx, cfg.Ledger.SeedFile, seed.PostgresSink{Q: pool}); err != nil {
			pool.Close()
			return storage{}, err
		}
	}
	return storage{
		runner: postgres.NewTxRunner(pool,
			postgres.WithRetryPolicy(policy),
			postgres.WithTimeouts(cfg.Ledger.LockTimeout, cfg.Ledger.StatementTimeout),
			postgres.WithRetryHook(onRetry),
		),
		customers:  postgres.NewCustomerRepository(pool),
		products:   postgres.NewProductRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		movements:  postgres.NewStockMovementRepository(pool),
		balances:   postgres.NewStockBalanceRepository(pool),
		invoices:   postgres.NewInvoiceRepository(pool),
		returns:    postgres.NewReturnRepository(pool),
		activity:   postgres.NewAnalyticsRepository(pool),
		close:      pool.Close,
	}, nil
}

func openMemory(ctx context.Context, cfg *config.Config, policy txretry.Policy, onRetry func(int, error)) (storage, error) {
	store := memory.NewStore(memory.WithLockTimeout(cfg.Ledger.LockTimeout))
	if cfg.Ledger.SeedFile != "" {
		if err := applySeed(ctx, cfg.Ledger.SeedFile, seed.MemorySink{Store: store}); err != nil {
			return storage{}, err
		}
	}
	return storage{
		runner:     memory.NewTxRunner(store, policy, onRetry),
		customers:  store.Customers(),
		products:   store.Products(),
		warehouses: store.Warehouses(),
		movements:  store.Movements(),
		balances:   store.Balances(),
		invoices:   store.Invoices(),
		returns:    store.Returns(),
		activity:   store.Activity(),
		close:      func() {},
	}, nil
}

func applySeed(ctx context.Context, path string, sink seed.Sink) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	_, err = f.Apply(ctx, sink)
	return err
}
