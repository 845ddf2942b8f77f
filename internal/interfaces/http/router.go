package http

import (
	nethttp "net/http"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/stockledger-api/internal/application/analytics"
	"github.com/jhoicas/stockledger-api/internal/application/billing"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/returns"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

// MetricsExporter métricas HTTP más el handler de /metrics.
type MetricsExporter interface {
	HTTPObserver
	Handler() nethttp.Handler
}

// AppOptions configuración de la app Fiber.
type AppOptions struct {
	Name        string
	BodyLimit   int
	Log         *logger.Logger
	Metrics     MetricsExporter // nil = sin /metrics
	SwaggerFile string          // "" o inexistente = sin /swagger
}

// NewApp crea la app con manejo de errores, recover, request id, CORS, logging,
// /health y (opcional) /metrics y /swagger. Las rutas de negocio se montan con Router.
func NewApp(opts AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      opts.Name,
		BodyLimit:    opts.BodyLimit,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: ErrorHandler(opts.Log),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())

	var obs HTTPObserver
	if opts.Metrics != nil {
		obs = opts.Metrics
	}
	app.Use(RequestLogger(opts.Log, obs))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": opts.Name})
	})
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}
	if opts.SwaggerFile != "" {
		if _, err := os.Stat(opts.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: opts.SwaggerFile,
				Path:     "swagger",
				Title:    opts.Name,
			}))
		}
	}
	return app
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Movements      *inventory.MovementUseCase
	Balances       *inventory.BalanceProjector
	Invoices       *billing.CreateInvoiceUseCase
	InvoicePDF     *billing.PDFUseCase
	Returns        *returns.UseCase
	CustomerLedger *analytics.CustomerLedgerUseCase
	Location       *time.Location // zona de las fechas YYYY-MM-DD del libro de cliente
	AuthMode       string         // jwt | header
	JWTSecret      string
}

// Router registra las rutas de la API bajo /api/v1.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api/v1", AuthMiddleware(deps.AuthMode, deps.JWTSecret))

	inventoryHandler := NewInventoryHandler(deps.Movements, deps.Balances)
	api.Post("/stock-movements", inventoryHandler.RegisterMovement)
	api.Get("/stock-movements", inventoryHandler.ListMovements)
	api.Post("/stock-transfers", inventoryHandler.Transfer)
	api.Get("/stock-balance", inventoryHandler.GetBalance)
	api.Get("/stock-balance-by-warehouse", inventoryHandler.GetBalancesByWarehouse)
	api.Get("/stock-balance-total", inventoryHandler.GetTotalBalance)

	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.InvoicePDF)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)

	returnsGroup := api.Group("/returns")
	returnHandler := NewReturnHandler(deps.Returns)
	returnsGroup.Post("/", returnHandler.Create)
	returnsGroup.Get("/", returnHandler.List)
	returnsGroup.Get("/customer-purchases/:customer_id", returnHandler.CustomerPurchases)

	ledgerHandler := NewCustomerLedgerHandler(deps.CustomerLedger, deps.Location)
	api.Get("/customers/:id/ledger", ledgerHandler.GetLedger)
}
