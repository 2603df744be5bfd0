package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elitcards/storefront/internal/catalog"
	"github.com/elitcards/storefront/internal/kvstore"
	"github.com/elitcards/storefront/internal/models"
	"github.com/elitcards/storefront/internal/netpolicy"
	"github.com/elitcards/storefront/internal/pocketbase"
)

// newTestService wires the cart against an unreachable remote, so the
// catalog always resolves to the 20-product fallback (ids "1".."20").
func newTestService(t *testing.T) *Service {
	t.Helper()
	kv, err := kvstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	client := pocketbase.New("http://127.0.0.1:1")
	policy := netpolicy.New("http://localhost:8000", "http://127.0.0.1:1")
	return New(kv, catalog.New(client, policy))
}

func TestItems_EmptyWhenMissing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	lines, err := svc.Items()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAdd_IncrementsExistingLine(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	require.NoError(t, svc.Add("1"))
	require.NoError(t, svc.Add("1"))
	require.NoError(t, svc.Add("2"))

	lines, err := svc.Items()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, models.CartLine{ProductID: "1", Quantity: 2}, lines[0])
	assert.Equal(t, models.CartLine{ProductID: "2", Quantity: 1}, lines[1])

	count, err := svc.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRemove_DeletesLineEntirely(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	require.NoError(t, svc.Add("1"))
	require.NoError(t, svc.Add("1"))
	require.NoError(t, svc.Add("2"))

	// Removal deletes the whole line, it never decrements.
	require.NoError(t, svc.Remove("1"))

	lines, err := svc.Items()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "2", lines[0].ProductID)

	// Removing an absent id is a no-op.
	require.NoError(t, svc.Remove("404"))
	lines, err = svc.Items()
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestAdd_EmptyIDRejected(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	err := svc.Add("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClearAndForceReset(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	require.NoError(t, svc.Add("1"))

	require.NoError(t, svc.Clear())
	count, err := svc.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, svc.Add("2"))
	require.NoError(t, svc.ForceReset())
	lines, err := svc.Items()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestItems_CorruptedValueResetsToEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	// Pre-seed a non-array value under the cart key.
	require.NoError(t, svc.KV.Set(kvstore.KeyCart, map[string]string{"not": "a cart"}))

	lines, err := svc.Items()
	require.NoError(t, err)
	assert.Empty(t, lines)

	// The stored value is normalized back to an empty array.
	raw, err := svc.KV.GetRaw(kvstore.KeyCart)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, raw)
}

func TestSubtotal_SkipsUnresolvableLines(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	// Fallback catalog: id "1" costs $35, id "6" costs $50.
	require.NoError(t, svc.Add("1"))
	require.NoError(t, svc.Add("1"))
	require.NoError(t, svc.Add("6"))
	// Orphaned line referencing a product that no longer exists.
	require.NoError(t, svc.Add("deleted-product"))

	subtotal, err := svc.Subtotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*35.0+50.0, subtotal)

	// The orphaned line is skipped, not purged.
	lines, err := svc.Items()
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestSnapshot_ResolvesTitlesAndTotals(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	require.NoError(t, svc.Add("1"))
	require.NoError(t, svc.Add("1"))
	require.NoError(t, svc.Add("ghost"))

	items, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Titanium Discover", items[0].Title)
	assert.Equal(t, 35.0, items[0].Price)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 70.0, items[0].Total)

	assert.Equal(t, "Unknown Product", items[1].Title)
	assert.Zero(t, items[1].Price)
	assert.Zero(t, items[1].Total)
}
