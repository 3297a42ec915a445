package in

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes wires the payment admission API onto app.
func RegisterRoutes(app *fiber.App, payments *PaymentHandler) {
	app.Get("/health", Ping)

	api := app.Group("/api")
	api.Post("/payments", payments.CreatePayment)
	api.Get("/payments/:id", payments.GetPayment)
	api.Post("/payments/:id/authorize", payments.AuthorizePayment)
	api.Post("/payments/:id/settle", payments.SettlePayment)
}

// Ping is the liveness probe endpoint.
func Ping(c *fiber.Ctx) error {
	return c.SendString("healthy")
}
