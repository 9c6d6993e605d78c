// Package collection builds deck and wishlist read models. Summaries are
// recomputed from stored rows on every read; nothing derived is persisted.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ramonehamilton/mtg-binder/internal/aggregate"
	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// DeckInfo is the summary of a deck.
type DeckInfo struct {
	ID         string
	Name       string
	ImageURI   *string
	Colors     []models.Color
	CardCount  int
	TotalPrice decimal.Decimal
}

// Deck is a deck summary plus its line items in insertion order.
type Deck struct {
	DeckInfo
	Cards []models.CardWithQuantity
}

// WishlistInfo is the summary of a wishlist.
type WishlistInfo struct {
	ID         string
	Name       string
	ImageURI   *string
	Colors     []models.Color
	CardCount  int
	TotalPrice decimal.Decimal
}

// Wishlist is a wishlist summary plus its line items in insertion order.
type Wishlist struct {
	WishlistInfo
	Cards []models.CardWithQuantity
}

// Config configures a Service.
type Config struct {
	Decks     repository.DeckRepository
	Wishlists repository.WishlistRepository
	Cards     repository.CardRepository

	// Dispatcher receives invalidation events after mutations. Optional.
	Dispatcher events.Dispatcher

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Service reads and mutates decks and wishlists.
type Service struct {
	decks      repository.DeckRepository
	wishlists  repository.WishlistRepository
	cards      repository.CardRepository
	dispatcher events.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a collection service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		decks:      cfg.Decks,
		wishlists:  cfg.Wishlists,
		cards:      cfg.Cards,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// ListDecks returns a summary of every deck, most recently modified first.
func (s *Service) ListDecks(ctx context.Context) ([]*DeckInfo, error) {
	decks, err := s.decks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	lookup, err := s.catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}

	infos := make([]*DeckInfo, 0, len(decks))
	for _, d := range decks {
		full, err := s.buildDeck(ctx, d, lookup)
		if err != nil {
			return nil, fmt.Errorf("list decks: %w", err)
		}
		infos = append(infos, &full.DeckInfo)
	}
	return infos, nil
}

// GetDeck returns a deck with its line items. A missing deck is (nil, nil).
func (s *Service) GetDeck(ctx context.Context, id string) (*Deck, error) {
	d, err := s.decks.GetByID(ctx, id)
	if err != nil || d == nil {
		return nil, err
	}
	lookup, err := s.catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("get deck %s: %w", id, err)
	}
	return s.buildDeck(ctx, d, lookup)
}

// CreateDeck creates an empty deck.
func (s *Service) CreateDeck(ctx context.Context, name string, imageURI *string) (*DeckInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "deck name is required")
	}

	now := s.now()
	d := &models.Deck{
		ID:         uuid.NewString(),
		Name:       name,
		ImageURI:   imageURI,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := s.decks.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create deck: %w", err)
	}

	s.logger.Info("created deck", "deck_id", d.ID, "name", d.Name)
	s.invalidate(ctx, events.PathDecks, d.ID)
	return &DeckInfo{ID: d.ID, Name: d.Name, ImageURI: d.ImageURI, Colors: []models.Color{}, TotalPrice: decimal.Zero}, nil
}

// AddDeckCard adds quantity copies of a catalog card to a deck.
func (s *Service) AddDeckCard(ctx context.Context, deckID, cardID string, quantity int) error {
	d, err := s.decks.GetByID(ctx, deckID)
	if err != nil {
		return fmt.Errorf("add card to deck %s: %w", deckID, err)
	}
	if d == nil {
		return apperr.New(apperr.CodeNotFound, fmt.Sprintf("deck %s not found", deckID))
	}
	card, err := s.lookupCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("add card to deck %s: %w", deckID, err)
	}

	row := &models.DeckCard{
		DeckID:    deckID,
		CardID:    card.ID,
		Quantity:  quantity,
		Name:      card.Name,
		SetCode:   card.SetCode,
		SetNumber: card.SetNumber,
		Price:     card.Price,
	}
	if err := s.decks.AddCard(ctx, row); err != nil {
		return fmt.Errorf("add card to deck %s: %w", deckID, err)
	}

	s.invalidate(ctx, events.PathDecks, deckID)
	return nil
}

// ListWishlists returns a summary of every wishlist, most recently modified first.
func (s *Service) ListWishlists(ctx context.Context) ([]*WishlistInfo, error) {
	wishlists, err := s.wishlists.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}
	lookup, err := s.catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}

	infos := make([]*WishlistInfo, 0, len(wishlists))
	for _, w := range wishlists {
		full, err := s.buildWishlist(ctx, w, lookup)
		if err != nil {
			return nil, fmt.Errorf("list wishlists: %w", err)
		}
		infos = append(infos, &full.WishlistInfo)
	}
	return infos, nil
}

// GetWishlist returns a wishlist with its line items. A missing wishlist is (nil, nil).
func (s *Service) GetWishlist(ctx context.Context, id string) (*Wishlist, error) {
	w, err := s.wishlists.GetByID(ctx, id)
	if err != nil || w == nil {
		return nil, err
	}
	lookup, err := s.catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("get wishlist %s: %w", id, err)
	}
	return s.buildWishlist(ctx, w, lookup)
}

// CreateWishlist creates an empty wishlist.
func (s *Service) CreateWishlist(ctx context.Context, name string, imageURI *string) (*WishlistInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "wishlist name is required")
	}

	now := s.now()
	w := &models.Wishlist{
		ID:         uuid.NewString(),
		Name:       name,
		ImageURI:   imageURI,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := s.wishlists.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}

	s.logger.Info("created wishlist", "wishlist_id", w.ID, "name", w.Name)
	s.invalidate(ctx, events.PathWishlists, w.ID)
	return &WishlistInfo{ID: w.ID, Name: w.Name, ImageURI: w.ImageURI, Colors: []models.Color{}, TotalPrice: decimal.Zero}, nil
}

// AddWishlistCard adds quantity copies of a catalog card to a wishlist.
func (s *Service) AddWishlistCard(ctx context.Context, wishlistID, cardID string, quantity int) error {
	w, err := s.wishlists.GetByID(ctx, wishlistID)
	if err != nil {
		return fmt.Errorf("add card to wishlist %s: %w", wishlistID, err)
	}
	if w == nil {
		return apperr.New(apperr.CodeNotFound, fmt.Sprintf("wishlist %s not found", wishlistID))
	}
	card, err := s.lookupCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("add card to wishlist %s: %w", wishlistID, err)
	}

	row := &models.WishlistCard{
		WishlistID: wishlistID,
		CardID:     card.ID,
		Quantity:   quantity,
		Name:       card.Name,
		SetCode:    card.SetCode,
		SetNumber:  card.SetNumber,
		Price:      card.Price,
	}
	if err := s.wishlists.AddCard(ctx, row); err != nil {
		return fmt.Errorf("add card to wishlist %s: %w", wishlistID, err)
	}

	s.invalidate(ctx, events.PathWishlists, wishlistID)
	return nil
}

func (s *Service) buildDeck(ctx context.Context, d *models.Deck, lookup aggregate.CardLookup) (*Deck, error) {
	stored, err := s.decks.GetCards(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	rows := make([]models.Row, len(stored))
	for i, c := range stored {
		rows[i] = c.Row()
	}

	items := aggregate.JoinRows(rows, lookup)
	sum := aggregate.Summarize(items)
	return &Deck{
		DeckInfo: DeckInfo{
			ID:         d.ID,
			Name:       d.Name,
			ImageURI:   d.ImageURI,
			Colors:     sum.Colors,
			CardCount:  sum.CardCount,
			TotalPrice: sum.TotalPrice,
		},
		Cards: items,
	}, nil
}

func (s *Service) buildWishlist(ctx context.Context, w *models.Wishlist, lookup aggregate.CardLookup) (*Wishlist, error) {
	stored, err := s.wishlists.GetCards(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	rows := make([]models.Row, len(stored))
	for i, c := range stored {
		rows[i] = c.Row()
	}

	items := aggregate.JoinRows(rows, lookup)
	sum := aggregate.Summarize(items)
	return &Wishlist{
		WishlistInfo: WishlistInfo{
			ID:         w.ID,
			Name:       w.Name,
			ImageURI:   w.ImageURI,
			Colors:     sum.Colors,
			CardCount:  sum.CardCount,
			TotalPrice: sum.TotalPrice,
		},
		Cards: items,
	}, nil
}

// catalog loads the live cards once per read so every row joins against the
// same catalog version.
func (s *Service) catalog(ctx context.Context) (aggregate.CardLookup, error) {
	cards, err := s.cards.GetAllCards(ctx)
	if err != nil {
		return nil, err
	}
	lookup := make(aggregate.CardLookup, len(cards))
	for _, c := range cards {
		lookup[c.ID] = c
	}
	return lookup, nil
}

func (s *Service) lookupCard(ctx context.Context, id string) (*models.Card, error) {
	card, err := s.cards.GetCardByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, apperr.New(apperr.CodeNotFound, fmt.Sprintf("card %s not found", id))
	}
	return card, nil
}

func (s *Service) invalidate(ctx context.Context, path, id string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(events.Invalidated(ctx, path, []string{id}))
}
