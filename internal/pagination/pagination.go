// Package pagination slices the card catalog into fixed-size, 1-indexed pages.
package pagination

import (
	"context"
	"fmt"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// Page is one slice of the catalog plus the totals needed to render a pager.
type Page struct {
	IDs        []string
	Cards      []*models.Card
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

// Engine pages over a CardRepository. It keeps no state between calls; every
// call reads the catalog afresh, relying on the repository's stable order.
type Engine struct {
	cards repository.CardRepository
}

// NewEngine creates a pagination engine over cards.
func NewEngine(cards repository.CardRepository) *Engine {
	return &Engine{cards: cards}
}

// ValidatePageSize rejects non-positive page sizes as a configuration error.
func ValidatePageSize(pageSize int) error {
	if pageSize <= 0 {
		return apperr.New(apperr.CodeConfiguration, fmt.Sprintf("page size must be positive, got %d", pageSize))
	}
	return nil
}

// Bounds returns the [start, end) window of page within a catalog of total
// items. Pages below 1 are treated as page 1; windows past the end are empty.
func Bounds(page, pageSize, total int) (start, end int) {
	if page < 1 {
		page = 1
	}
	// Compare before multiplying so huge page numbers cannot overflow.
	if page-1 > total/pageSize {
		return total, total
	}
	start = min((page-1)*pageSize, total)
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

// TotalPages returns the number of non-empty pages, at least 1.
func TotalPages(total, pageSize int) int {
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

// LoadPageIDs returns the ids on page. A page past the end is an empty slice.
func (e *Engine) LoadPageIDs(ctx context.Context, page, pageSize int) ([]string, error) {
	p, err := e.Page(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return p.IDs, nil
}

// LoadInitialIDs is the first-paint fast path, equal to LoadPageIDs(ctx, 1, count).
func (e *Engine) LoadInitialIDs(ctx context.Context, count int) ([]string, error) {
	return e.LoadPageIDs(ctx, 1, count)
}

// Page returns the cards on page along with catalog totals.
func (e *Engine) Page(ctx context.Context, page, pageSize int) (*Page, error) {
	if err := ValidatePageSize(pageSize); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	all, err := e.cards.GetAllCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load page %d: %w", page, err)
	}

	start, end := Bounds(page, pageSize, len(all))
	cards := all[start:end]
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}

	return &Page{
		IDs:        ids,
		Cards:      cards,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: len(all),
		TotalPages: TotalPages(len(all), pageSize),
	}, nil
}
