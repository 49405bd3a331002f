package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCatalog_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog(newTestProduct("brass-diya", 1, 99))

	n, err := SeedCatalog(ctx, catalog, DemoProducts())
	require.NoError(t, err)
	assert.Equal(t, len(DemoProducts())-1, n)

	existing, err := catalog.GetProduct(ctx, "brass-diya")
	require.NoError(t, err)
	assert.Equal(t, 99, existing.Stock)

	n, err = SeedCatalog(ctx, catalog, DemoProducts())
	require.NoError(t, err)
	assert.Zero(t, n)
}
