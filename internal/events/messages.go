package events

import "context"

// Event types.
const (
	// TypeCollectionInvalidated is sent after a mutation changes a collection.
	TypeCollectionInvalidated = "collection:invalidated"

	// TypeCatalogChanged is sent when the card snapshot file is rewritten.
	TypeCatalogChanged = "catalog:changed"

	// TypePricesRefreshed is sent after a price refresh finishes.
	TypePricesRefreshed = "prices:refreshed"
)

// Collection paths carried by CollectionInvalidatedEvent.
const (
	PathCards     = "/cards"
	PathDecks     = "/decks"
	PathWishlists = "/wishlists"
)

// CollectionInvalidatedEvent is the payload for collection:invalidated events.
// Clients holding a cached view of Path should refetch it.
type CollectionInvalidatedEvent struct {
	Path string   `json:"path"`          // Collection path (e.g., "/decks")
	IDs  []string `json:"ids,omitempty"` // Affected ids, when known
}

// CatalogChangedEvent is the payload for catalog:changed events.
type CatalogChangedEvent struct {
	Source string `json:"source"` // Snapshot file path
}

// PricesRefreshedEvent is the payload for prices:refreshed events.
type PricesRefreshedEvent struct {
	Requested int `json:"requested"` // Cards asked for
	Updated   int `json:"updated"`   // Cards with a new price
}

// Invalidated builds a collection:invalidated event for path.
func Invalidated(ctx context.Context, path string, ids []string) Event {
	return NewTypedEvent(ctx, TypeCollectionInvalidated, CollectionInvalidatedEvent{
		Path: path,
		IDs:  ids,
	})
}
