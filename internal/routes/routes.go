package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fathima-sithara/chat-hub/internal/handlers"
)

func Setup(app *fiber.App, h *handlers.Handler, ws *handlers.WSHandler, authMW fiber.Handler, gatherer prometheus.Gatherer) {
	app.Get("/health", handlers.Health)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	app.Get("/ws", ws.Upgrade, ws.Handler())

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)

	protected := api.Group("", authMW)

	protected.Get("/users/me", h.Me)
	protected.Get("/presence/:userId", h.Presence)

	protected.Get("/friends", h.ListFriends)
	protected.Delete("/friends/:friendId", h.Unfriend)

	protected.Get("/friend-requests", h.ListFriendRequests)
	protected.Post("/friend-requests", h.SendFriendRequest)
	protected.Post("/friend-requests/:id/accept", h.AcceptFriendRequest)
	protected.Post("/friend-requests/:id/reject", h.RejectFriendRequest)
	protected.Post("/friend-requests/:id/cancel", h.CancelFriendRequest)

	protected.Get("/messages/:friendId", h.Thread)
	protected.Post("/messages", h.SendMessage)
	protected.Patch("/messages/:id", h.EditMessage)
	protected.Delete("/messages/:id", h.DeleteMessage)
	protected.Post("/messages/read/:senderId", h.MarkRead)
	protected.Put("/messages/:id/reaction", h.React)
	protected.Delete("/messages/:id/reaction", h.Unreact)

	protected.Get("/calls", h.CallHistory)
}
