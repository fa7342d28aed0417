package bots

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the event callback endpoint on the given router.
func RegisterRoutes(r chi.Router, lark *LarkHandler) {
	r.Post("/lark/event", lark.HandleEvent)
}
