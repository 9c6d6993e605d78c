package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/handlers"
	"github.com/ramonehamilton/mtg-binder/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint for invalidation events
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		cardHandler := handlers.NewCardHandler(s.pages, s.cards, s.pageSize, s.initialCount)
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cardHandler.ListCards)
			r.Get("/initial", cardHandler.InitialCards)
			r.Get("/{cardID}", cardHandler.GetCard)
		})

		deckHandler := handlers.NewDeckHandler(s.collections)
		r.Route("/decks", func(r chi.Router) {
			r.Get("/", deckHandler.GetDecks)
			r.Post("/", deckHandler.CreateDeck)
			r.Get("/{deckID}", deckHandler.GetDeck)
			r.Post("/{deckID}/cards", deckHandler.AddCard)
		})

		wishlistHandler := handlers.NewWishlistHandler(s.collections)
		r.Route("/wishlists", func(r chi.Router) {
			r.Get("/", wishlistHandler.GetWishlists)
			r.Post("/", wishlistHandler.CreateWishlist)
			r.Get("/{wishlistID}", wishlistHandler.GetWishlist)
			r.Post("/{wishlistID}/cards", wishlistHandler.AddCard)
		})

		viewHandler := handlers.NewViewHandler(s.views, s.stores, s.dispatcher, s.logger)
		r.Route("/views", func(r chi.Router) {
			r.Post("/", viewHandler.Mount)
			r.Delete("/{viewID}", viewHandler.Unmount)
			r.Get("/{viewID}/selection", viewHandler.GetSelection)
			r.Post("/{viewID}/selection/toggle", viewHandler.Toggle)
			r.Post("/{viewID}/selection/select-all", viewHandler.SelectAll)
			r.Post("/{viewID}/selection/clear", viewHandler.Clear)
			r.Post("/{viewID}/delete", viewHandler.Delete)
		})
	})
}

// healthCheck returns the server health status.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":     "ok",
		"ws_clients": s.wsHub.ClientCount(),
		"observers":  s.dispatcher.ObserverCount(),
	}
	if err := s.pingStore(r); err != nil {
		status["status"] = "degraded"
		status["store_error"] = err.Error()
	}
	response.Success(w, status)
}

// pingStore checks that the card store answers a single lookup.
func (s *Server) pingStore(r *http.Request) error {
	_, err := s.cards.GetCardByID(r.Context(), "")
	return err
}
