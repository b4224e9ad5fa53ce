package articles

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/articles", h.List)
	r.Post("/articles", h.Create)
	r.Get("/articles/{id}", h.Show)
	r.Put("/articles/{id}", h.Update)
	r.Delete("/articles/{id}", h.Delete)
}
