package repository

import (
	"context"
	"fmt"
	"testing"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newLine(productID string, quantity int, unitPrice string, options model.Options) model.CartLine {
	return model.CartLine{
		ProductID:   productID,
		ProductName: "Product " + productID,
		Quantity:    quantity,
		Options:     options,
		UnitPrice:   dec(unitPrice),
	}
}

// cartRepositoryContract exercises behaviour shared by every CartRepository.
func cartRepositoryContract(t *testing.T, newRepo func(t *testing.T) CartRepository) {
	alice := model.UserOwner("alice")
	guest := model.SessionOwner("sess-1")

	t.Run("empty cart", func(t *testing.T) {
		repo := newRepo(t)

		lines, err := repo.GetLines(context.Background(), alice)

		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("AddLine keeps insertion order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, id := range []string{"c", "a", "b"} {
			_, err := repo.AddLine(ctx, alice, newLine(id, 1, "1.00", nil))
			require.NoError(t, err)
		}

		lines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		require.Len(t, lines, 3)
		assert.Equal(t, "c", lines[0].ProductID)
		assert.Equal(t, "a", lines[1].ProductID)
		assert.Equal(t, "b", lines[2].ProductID)
	})

	t.Run("AddLine with same signature increments", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		opts := model.Options{"size": "large", "revisions": "2"}

		_, err := repo.AddLine(ctx, alice, newLine("logo", 1, "77.00", opts))
		require.NoError(t, err)
		lines, err := repo.AddLine(ctx, alice, newLine("logo", 2, "77.00", model.Options{"revisions": "2", "size": "large"}))
		require.NoError(t, err)

		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Quantity)
		assertDecimal(t, "231.00", lines[0].TotalPrice)
		assert.Equal(t, opts, lines[0].Options)
	})

	t.Run("AddLine with different options creates a new line", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("logo", 1, "50.00", model.Options{"size": "small"}))
		require.NoError(t, err)
		lines, err := repo.AddLine(ctx, alice, newLine("logo", 1, "62.50", model.Options{"size": "large"}))
		require.NoError(t, err)

		require.Len(t, lines, 2)
		assertDecimal(t, "50.00", lines[0].TotalPrice)
		assertDecimal(t, "62.50", lines[1].TotalPrice)
	})

	t.Run("carts are isolated per owner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("a", 1, "1.00", nil))
		require.NoError(t, err)
		_, err = repo.AddLine(ctx, guest, newLine("b", 1, "1.00", nil))
		require.NoError(t, err)

		aliceLines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		guestLines, err := repo.GetLines(ctx, guest)
		require.NoError(t, err)

		require.Len(t, aliceLines, 1)
		require.Len(t, guestLines, 1)
		assert.Equal(t, "a", aliceLines[0].ProductID)
		assert.Equal(t, "b", guestLines[0].ProductID)
		require.NotNil(t, guestLines[0].SessionID)
		assert.Equal(t, "sess-1", *guestLines[0].SessionID)
		assert.Nil(t, guestLines[0].UserID)
	})

	t.Run("AddLine past the quantity ceiling leaves the line untouched", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("a", model.MaxLineQuantity, "2.00", nil))
		require.NoError(t, err)

		_, err = repo.AddLine(ctx, alice, newLine("a", 1, "2.00", nil))
		require.ErrorIs(t, err, model.ErrInvalidQuantity)

		lines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, model.MaxLineQuantity, lines[0].Quantity)
		assertDecimal(t, "19998.00", lines[0].TotalPrice)
	})

	t.Run("repeated reads without mutation are identical", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("logo", 2, "62.50", model.Options{"size": "large"}))
		require.NoError(t, err)
		_, err = repo.AddLine(ctx, alice, newLine("card", 1, "5.00", nil))
		require.NoError(t, err)

		first, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		second, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)

		require.Len(t, first, 2)
		assert.Equal(t, first, second)
	})

	t.Run("SetQuantity recomputes total", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		lines, err := repo.AddLine(ctx, alice, newLine("a", 1, "19.99", nil))
		require.NoError(t, err)

		lines, err = repo.SetQuantity(ctx, alice, lines[0].ID, 3)
		require.NoError(t, err)

		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Quantity)
		assertDecimal(t, "59.97", lines[0].TotalPrice)
	})

	t.Run("SetQuantity above the ceiling is rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		lines, err := repo.AddLine(ctx, alice, newLine("a", 1, "1.00", nil))
		require.NoError(t, err)

		_, err = repo.SetQuantity(ctx, alice, lines[0].ID, model.MaxLineQuantity+1)
		require.ErrorIs(t, err, model.ErrInvalidQuantity)

		lines, err = repo.GetLines(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 1, lines[0].Quantity)
	})

	t.Run("SetQuantity of unknown or foreign line", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		lines, err := repo.AddLine(ctx, guest, newLine("a", 1, "1.00", nil))
		require.NoError(t, err)

		_, err = repo.SetQuantity(ctx, alice, lines[0].ID, 2)
		assert.ErrorIs(t, err, model.ErrLineNotFound)

		_, err = repo.SetQuantity(ctx, guest, uuid.New(), 2)
		assert.ErrorIs(t, err, model.ErrLineNotFound)
	})

	t.Run("DeleteLine", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("a", 1, "1.00", nil))
		require.NoError(t, err)
		lines, err := repo.AddLine(ctx, alice, newLine("b", 1, "2.00", nil))
		require.NoError(t, err)

		lines, err = repo.DeleteLine(ctx, alice, lines[0].ID)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, "b", lines[0].ProductID)

		_, err = repo.DeleteLine(ctx, alice, uuid.New())
		assert.ErrorIs(t, err, model.ErrLineNotFound)
	})

	t.Run("DeleteAll only clears the owner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("a", 1, "1.00", nil))
		require.NoError(t, err)
		_, err = repo.AddLine(ctx, guest, newLine("a", 1, "1.00", nil))
		require.NoError(t, err)

		require.NoError(t, repo.DeleteAll(ctx, alice))
		require.NoError(t, repo.DeleteAll(ctx, alice))

		lines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, lines)

		lines, err = repo.GetLines(ctx, guest)
		require.NoError(t, err)
		assert.Len(t, lines, 1)
	})

	t.Run("MergeSessionIntoUser combines and moves", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("logo", 2, "62.50", model.Options{"size": "large"}))
		require.NoError(t, err)
		_, err = repo.AddLine(ctx, guest, newLine("logo", 1, "62.50", model.Options{"size": "large"}))
		require.NoError(t, err)
		_, err = repo.AddLine(ctx, guest, newLine("card", 4, "5.00", nil))
		require.NoError(t, err)

		result, err := repo.MergeSessionIntoUser(ctx, "sess-1", "alice")
		require.NoError(t, err)
		assert.Equal(t, MergeResult{Moved: 1, Combined: 1}, result)

		lines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, "logo", lines[0].ProductID)
		assert.Equal(t, 3, lines[0].Quantity)
		assertDecimal(t, "187.50", lines[0].TotalPrice)
		assert.Equal(t, "card", lines[1].ProductID)
		assert.Equal(t, 4, lines[1].Quantity)
		require.NotNil(t, lines[1].UserID)
		assert.Equal(t, "alice", *lines[1].UserID)
		assert.Nil(t, lines[1].SessionID)

		guestLines, err := repo.GetLines(ctx, guest)
		require.NoError(t, err)
		assert.Empty(t, guestLines)
	})

	t.Run("MergeSessionIntoUser clamps summed quantity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("a", 9000, "1.00", nil))
		require.NoError(t, err)
		_, err = repo.AddLine(ctx, guest, newLine("a", 9000, "1.00", nil))
		require.NoError(t, err)

		result, err := repo.MergeSessionIntoUser(ctx, "sess-1", "alice")
		require.NoError(t, err)
		assert.Equal(t, MergeResult{Combined: 1}, result)

		lines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, model.MaxLineQuantity, lines[0].Quantity)
		assertDecimal(t, "9999.00", lines[0].TotalPrice)
	})

	t.Run("MergeSessionIntoUser with empty session", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.AddLine(ctx, alice, newLine("a", 1, "1.00", nil))
		require.NoError(t, err)

		result, err := repo.MergeSessionIntoUser(ctx, "sess-1", "alice")
		require.NoError(t, err)
		assert.Equal(t, MergeResult{}, result)

		lines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, lines, 1)
	})

	t.Run("concurrent adds of one signature yield one line", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const workers = 20
		g, gctx := errgroup.WithContext(ctx)
		for range workers {
			g.Go(func() error {
				_, err := repo.AddLine(gctx, alice, newLine("logo", 1, "50.00", model.Options{"size": "small"}))
				return err
			})
		}
		require.NoError(t, g.Wait())

		lines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, workers, lines[0].Quantity)
		assertDecimal(t, "1000.00", lines[0].TotalPrice)
	})

	t.Run("concurrent merges and adds stay consistent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const sessions = 5
		for i := range sessions {
			owner := model.SessionOwner(fmt.Sprintf("sess-%d", i))
			_, err := repo.AddLine(ctx, owner, newLine("logo", 1, "50.00", nil))
			require.NoError(t, err)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := range sessions {
			g.Go(func() error {
				_, err := repo.MergeSessionIntoUser(gctx, fmt.Sprintf("sess-%d", i), "alice")
				return err
			})
			g.Go(func() error {
				_, err := repo.AddLine(gctx, alice, newLine("logo", 1, "50.00", nil))
				return err
			})
		}
		require.NoError(t, g.Wait())

		lines, err := repo.GetLines(ctx, alice)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, 2*sessions, lines[0].Quantity)
	})
}

func TestCartRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	cartRepositoryContract(t, func(t *testing.T) CartRepository {
		truncate(t, pool)
		return NewCartRepository(pool, zerolog.Nop())
	})
}

func TestMemoryCartRepository(t *testing.T) {
	cartRepositoryContract(t, func(t *testing.T) CartRepository {
		return NewMemoryCartRepository()
	})
}

func TestMemoryCartRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryCartRepository()
	ctx := context.Background()
	owner := model.UserOwner("alice")

	lines, err := repo.AddLine(ctx, owner, newLine("a", 1, "1.00", model.Options{"size": "small"}))
	require.NoError(t, err)

	lines[0].Quantity = 99
	lines[0].Options["size"] = "large"

	stored, err := repo.GetLines(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, stored[0].Quantity)
	assert.Equal(t, model.OptionValue("small"), stored[0].Options["size"])
}

func TestCartRepository_ErrorPaths(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCartRepository(pool, zerolog.Nop())
	owner := model.UserOwner("alice")
	pool.Close()

	_, err := repo.GetLines(context.Background(), owner)
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.True(t, model.IsTransient(err))

	_, err = repo.AddLine(context.Background(), owner, newLine("a", 1, "1.00", nil))
	assert.ErrorIs(t, err, model.ErrStorage)

	_, err = repo.MergeSessionIntoUser(context.Background(), "sess-1", "alice")
	assert.ErrorIs(t, err, model.ErrStorage)
}
