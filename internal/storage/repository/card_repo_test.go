package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

func testCard(id, set, number string, price string, colors ...models.Color) *models.Card {
	return &models.Card{
		ID:        id,
		Name:      "Card " + id,
		Colors:    colors,
		SetCode:   set,
		SetNumber: number,
		Price:     decimal.RequireFromString(price),
	}
}

func TestCardRepository_GetAllCards_Empty(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))

	cards, err := repo.GetAllCards(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestCardRepository_UpsertAndRead(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertCards(ctx, []*models.Card{
		testCard("b", "MH3", "002", "1.50", models.Red),
		testCard("a", "MH3", "001", "3.00", models.Blue, models.Red),
		testCard("c", "DMU", "010", "0.25"),
	}))

	cards, err := repo.GetAllCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 3)

	// Ordered by set code, then collector number.
	assert.Equal(t, []string{"c", "a", "b"}, []string{cards[0].ID, cards[1].ID, cards[2].ID})
	assert.Equal(t, []models.Color{models.Blue, models.Red}, cards[1].Colors)
	assert.Nil(t, cards[0].Colors)
	assert.True(t, cards[1].Price.Equal(decimal.RequireFromString("3.00")))

	card, err := repo.GetCardByID(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "Card b", card.Name)
}

func TestCardRepository_GetAllCards_CollectorNumberOrder(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertCards(ctx, []*models.Card{
		testCard("ten", "M21", "10", "1"),
		testCard("twelve-a", "M21", "12a", "1"),
		testCard("two", "M21", "2", "1"),
		testCard("twelve", "M21", "12", "1"),
		testCard("other-set", "AFR", "300", "1"),
	}))

	cards, err := repo.GetAllCards(ctx)
	require.NoError(t, err)

	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"other-set", "two", "ten", "twelve", "twelve-a"}, ids)
}

func TestCardRepository_GetCardByID_Missing(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))

	card, err := repo.GetCardByID(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, card)
}

func TestCardRepository_MalformedPriceIsReadFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCardRepository(db)

	_, err := db.Exec(`INSERT INTO cards (id, name, colors, set_code, set_number, price)
		VALUES ('x', 'Broken', '', 'SET', '1', 'twelve')`)
	require.NoError(t, err)

	cards, err := repo.GetAllCards(context.Background())
	assert.Nil(t, cards)
	assert.True(t, errors.Is(err, apperr.ErrReadFailure), "got %v", err)
}

func TestCardRepository_UnknownColorIsReadFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCardRepository(db)

	_, err := db.Exec(`INSERT INTO cards (id, name, colors, set_code, set_number, price)
		VALUES ('x', 'Odd', 'R,c', 'SET', '1', '1.00')`)
	require.NoError(t, err)

	cards, err := repo.GetAllCards(context.Background())
	assert.Nil(t, cards)
	assert.True(t, errors.Is(err, apperr.ErrReadFailure), "got %v", err)

	_, err = repo.GetCardByID(context.Background(), "x")
	assert.Equal(t, apperr.CodeReadFailure, apperr.CodeOf(err))
}

func TestCardRepository_UpsertRejectsUnknownColor(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.UpsertCards(ctx, []*models.Card{testCard("a", "SET", "1", "1", models.Color("X"))})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	cards, err := repo.GetAllCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestCardRepository_ClosedDBIsReadFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCardRepository(db)
	require.NoError(t, db.Close())

	_, err := repo.GetAllCards(context.Background())
	assert.Equal(t, apperr.CodeReadFailure, apperr.CodeOf(err))
}

func TestCardRepository_UpdatePrices(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertCards(ctx, []*models.Card{testCard("a", "SET", "1", "1.00")}))
	require.NoError(t, repo.UpdatePrices(ctx, []models.CardPrice{
		{CardID: "a", Price: decimal.RequireFromString("4.20")},
		{CardID: "unknown", Price: decimal.RequireFromString("9.99")},
	}))

	card, err := repo.GetCardByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "4.2", card.Price.String())
}

func TestCardRepository_DeleteWhereIDIn(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertCards(ctx, []*models.Card{
		testCard("a", "SET", "1", "1"),
		testCard("b", "SET", "2", "1"),
		testCard("c", "SET", "3", "1"),
	}))

	n, err := repo.DeleteWhereIDIn(ctx, []string{"a", "c", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Repeating the delete is a harmless no-op.
	n, err = repo.DeleteWhereIDIn(ctx, []string{"a", "c", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	cards, err := repo.GetAllCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "b", cards[0].ID)
}

func TestCardRepository_DeleteWhereIDIn_ManyIDs(t *testing.T) {
	repo := NewCardRepository(setupTestDB(t))
	ctx := context.Background()

	const total = maxInParams*2 + 17
	cards := make([]*models.Card, total)
	ids := make([]string, total)
	for i := range cards {
		ids[i] = fmt.Sprintf("id-%04d", i)
		cards[i] = testCard(ids[i], "SET", fmt.Sprintf("%04d", i), "0.10")
	}
	require.NoError(t, repo.UpsertCards(ctx, cards))

	n, err := repo.DeleteWhereIDIn(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(total), n)

	remaining, err := repo.GetAllCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
