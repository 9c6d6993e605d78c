package scryfall

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// PriceStore is the catalog the refresher reads and updates.
type PriceStore interface {
	repository.CardRepository
	UpdatePrices(ctx context.Context, prices []models.CardPrice) error
}

// RefreshResult summarizes one refresh.
type RefreshResult struct {
	Requested int
	Updated   int
	NotFound  int
	Duration  time.Duration
}

// RefresherConfig configures a PriceRefresher.
type RefresherConfig struct {
	Client *Client
	Store  PriceStore

	// BatchSize is the number of printings per request. Defaults to MaxBatchSize.
	BatchSize int

	// Dispatcher receives prices:refreshed and, when prices changed,
	// collection:invalidated for the card catalog. Optional.
	Dispatcher events.Dispatcher

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// PriceRefresher updates catalog prices from Scryfall USD prices.
type PriceRefresher struct {
	client     *Client
	store      PriceStore
	batchSize  int
	dispatcher events.Dispatcher
	logger     *slog.Logger
}

// NewPriceRefresher creates a refresher.
func NewPriceRefresher(cfg RefresherConfig) *PriceRefresher {
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PriceRefresher{
		client:     cfg.Client,
		store:      cfg.Store,
		batchSize:  cfg.BatchSize,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
	}
}

// Refresh fetches current prices for the whole catalog and writes the ones
// that changed in a single update. A failed batch aborts the refresh before
// anything is written.
func (r *PriceRefresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()

	cards, err := r.store.GetAllCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	// Several catalog entries may share a printing.
	byKey := make(map[string][]*models.Card)
	identifiers := make([]CardIdentifier, 0, len(cards))
	for _, c := range cards {
		if c.SetCode == "" || c.SetNumber == "" {
			continue
		}
		id := IdentifierFor(c)
		if _, seen := byKey[id.Key()]; !seen {
			identifiers = append(identifiers, id)
		}
		byKey[id.Key()] = append(byKey[id.Key()], c)
	}

	result := &RefreshResult{Requested: len(identifiers)}
	var updates []models.CardPrice

	for i := 0; i < len(identifiers); i += r.batchSize {
		end := min(i+r.batchSize, len(identifiers))

		found, notFound, err := r.client.GetCollection(ctx, identifiers[i:end])
		if err != nil {
			return nil, fmt.Errorf("fetch batch %d-%d: %w", i, end, err)
		}
		result.NotFound += len(notFound)

		for _, sc := range found {
			price, ok, err := sc.Prices.USDPrice()
			if err != nil {
				r.logger.Warn("skipping unparseable price", "card", sc.Name, "set", sc.SetCode, "error", err)
				continue
			}
			if !ok {
				continue
			}
			for _, c := range byKey[sc.Key()] {
				if !c.Price.Equal(price) {
					updates = append(updates, models.CardPrice{CardID: c.ID, Price: price})
				}
			}
		}
	}

	if err := r.store.UpdatePrices(ctx, updates); err != nil {
		return nil, fmt.Errorf("store prices: %w", err)
	}
	result.Updated = len(updates)
	result.Duration = time.Since(start)

	r.logger.Info("price refresh complete",
		"requested", result.Requested,
		"updated", result.Updated,
		"not_found", result.NotFound,
		"duration", result.Duration)

	if r.dispatcher != nil {
		r.dispatcher.Dispatch(events.NewTypedEvent(ctx, events.TypePricesRefreshed, events.PricesRefreshedEvent{
			Requested: result.Requested,
			Updated:   result.Updated,
		}))
		if result.Updated > 0 {
			ids := make([]string, len(updates))
			for i, u := range updates {
				ids[i] = u.CardID
			}
			r.dispatcher.Dispatch(events.Invalidated(ctx, events.PathCards, ids))
		}
	}

	return result, nil
}

// Run refreshes immediately and then every interval until ctx is cancelled.
// Failed refreshes are logged and retried at the next tick.
func (r *PriceRefresher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("price refresh failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
