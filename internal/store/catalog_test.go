package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/partsel/internal/catalog"
	"github.com/roach88/partsel/internal/ir"
)

func TestImportAndLoadCatalog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mem := makeTestCatalog()

	n, err := s.ImportCatalog(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	loaded, err := s.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME", "OTHER"}, loaded.Tables())

	rows := loaded.Rows("ACME")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"CODE", "MODEL", "AMP"}, rows[0].Columns, "column order survives storage")
	assert.Equal(t, "MB-200", rows[1].Get("MODEL"))

	want, err := mem.Digest()
	require.NoError(t, err)
	got, err := loaded.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImportCatalogReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ImportCatalog(ctx, makeTestCatalog())
	require.NoError(t, err)

	next := catalog.NewMemory()
	next.Add("NEW", ir.NewCatalogRow([]string{"CODE"}, []string{"N-1"}))
	n, err := s.ImportCatalog(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tables, err := s.CatalogTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"NEW": 1}, tables)
}

func TestLoadCatalogEmpty(t *testing.T) {
	s := createTestStore(t)

	loaded, err := s.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}
