package server

import (
	"brevio/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const msgTooManyRequests = "Too many requests. Please try again later."

// rateLimit admits requests per client IP. Limiter errors let the request through.
func (s *Server) rateLimit(c *fiber.Ctx) error {
	if s.limiter == nil {
		return c.Next()
	}

	ip := c.IP()
	allowed, err := s.limiter.Allow(c.UserContext(), ip)
	if err != nil {
		logger.Warn("Rate limiter unavailable, allowing request",
			zap.String("ip", ip),
			zap.Error(err))
		return c.Next()
	}

	if !allowed {
		logger.Debug("Rate limit exceeded", zap.String("ip", ip))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": msgTooManyRequests})
	}

	return c.Next()
}
