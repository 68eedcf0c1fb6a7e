package tryon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*CatalogResolver, string) {
	t.Helper()
	dir := t.TempDir()
	public := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(filepath.Join(public, "Images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "Images", "Denim Shirt.webp"), []byte("shirt"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("secret"), 0o644))

	r, err := NewCatalogResolver(public)
	require.NoError(t, err)
	return r, dir
}

func TestCatalogResolve(t *testing.T) {
	r, _ := newCatalog(t)

	data, mime, err := r.Resolve("/Images/Denim Shirt.webp")
	require.NoError(t, err)
	require.Equal(t, "shirt", string(data))
	require.Equal(t, "image/webp", mime)

	data, _, err = r.Resolve("Images/Denim Shirt.webp")
	require.NoError(t, err)
	require.Equal(t, "shirt", string(data))
}

func TestCatalogResolveMissing(t *testing.T) {
	r, _ := newCatalog(t)

	_, _, err := r.Resolve("/Images/Nope.webp")
	require.True(t, errors.Is(err, ErrImageNotFound))

	_, _, err = r.Resolve("")
	require.True(t, errors.Is(err, ErrImageNotFound))
}

func TestCatalogResolveStaysInsideRoot(t *testing.T) {
	r, _ := newCatalog(t)

	_, _, err := r.Resolve("../secret.txt")
	require.Error(t, err)

	_, _, err = r.Resolve("/Images/../../secret.txt")
	require.Error(t, err)
}
