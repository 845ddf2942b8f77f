package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/seed"
)

const sample = `{
  "tenants": [{
    "id": "t1",
    "warehouses": [{"id": "w1", "name": "Central"}, {"id": "w2", "name": "Norte"}],
    "products":   [{"id": "p1", "sku": "TOR-01", "name": "Tornillo", "unit": "und"}],
    "customers":  [{"id": "c1", "name": "Ferretería", "tax_id": "900123"}]
  }]
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAndApply_Memory(t *testing.T) {
	f, err := seed.Load(writeFile(t, sample))
	require.NoError(t, err)

	store := memory.NewStore()
	n, err := f.Apply(context.Background(), seed.MemorySink{Store: store})
	require.NoError(t, err)
	assert.Equal(t, seed.Counts{Customers: 1, Products: 1, Warehouses: 2}, n)

	ctx := context.Background()
	c, err := store.Customers().GetByID(ctx, "t1", "c1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Ferretería", c.Name)

	other, err := store.Customers().GetByID(ctx, "t2", "c1")
	require.NoError(t, err)
	assert.Nil(t, other, "los datos quedan en el tenant del archivo")

	whs, err := store.Warehouses().ListByTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, whs, 2)
}

func TestLoad_Errores(t *testing.T) {
	_, err := seed.Load(filepath.Join(t.TempDir(), "no-existe.json"))
	assert.Error(t, err)

	_, err = seed.Load(writeFile(t, "{"))
	assert.ErrorContains(t, err, "JSON inválido")

	_, err = seed.Load(writeFile(t, `{"tenants":[{"customers":[]}]}`))
	assert.ErrorContains(t, err, "sin id")
}
