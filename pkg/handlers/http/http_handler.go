package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport interface {
	GetTransport() *HandlerTransportDTO
}

type HandlerTransportDTO struct {
	// Quotes
	RandomQuoteHandler Handler
	SearchQuoteHandler Handler

	// Operational
	GetVersionHandler Handler
}

func (t *HandlerTransportDTO) GetTransport() *HandlerTransportDTO {
	return t
}
