package in

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

const headerCorrelationID = "X-Correlation-ID"

// WithCorrelationID ensures every request carries a correlation id,
// generating one when the caller didn't supply it, echoes it on the
// response, and attaches it to the request's user context. Log lines
// and outbox events written while serving the request do not carry it.
func WithCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := c.Get(headerCorrelationID)
		if cid == "" {
			cid = uuid.New().String()
		}

		c.Set(headerCorrelationID, cid)
		c.SetUserContext(mlog.ContextWithCorrelationID(c.UserContext(), cid))

		return c.Next()
	}
}

// WithLogger attaches logger to every request's context.
func WithLogger(logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(mlog.ContextWithLogger(c.UserContext(), logger))
		return c.Next()
	}
}
