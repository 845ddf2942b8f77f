// seed carga datos maestros (clientes, productos, bodegas) en PostgreSQL desde un JSON.
//
// Uso: go run ./cmd/seed [ruta/seed.json]
// Por defecto busca seed.json en el directorio actual. Aplica el esquema antes de
// insertar y hace upsert, así que puede ejecutarse varias veces.
package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/seed"
	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/logger"
)

func main() {
	path := "seed.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	log := logger.New(logger.Config{Env: "development", Level: "info", Service: "seed"})

	f, err := seed.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("leer archivo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, config.LoadDB())
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar esquema")
	}

	var n seed.Counts
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		var err error
		n, err = f.Apply(ctx, seed.PostgresSink{Q: tx})
		return err
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed")
	}

	log.Info().
		Int("tenants", len(f.Tenants)).
		Int("warehouses", n.Warehouses).
		Int("products", n.Products).
		Int("customers", n.Customers).
		Str("file", path).
		Msg("datos maestros cargados")
}
