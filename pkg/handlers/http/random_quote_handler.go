package http

import (
	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/quote"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type randomQuoteHandler struct {
	*BaseHandler
	client quote.Client
}

func NewRandomQuoteHandler(logger *logrus.Logger, client quote.Client) Handler {
	return &randomQuoteHandler{
		BaseHandler: NewBaseHandler(logger),
		client:      client,
	}
}

// Handle @Summary Get a random quote
// @Description Forwards to the quote API random endpoint and relays its response unchanged
// @Tags Quotes
// @Produce json
// @Success 200 {object} map[string]interface{} "Upstream payload"
// @Failure 502 {object} map[string]interface{} "Upstream unavailable"
// @Failure 504 {object} map[string]interface{} "Upstream timed out"
// @Router /random [get]
func (h *randomQuoteHandler) Handle(c *fiber.Ctx) error {
	c.Locals(common.RouteContextKey, common.RouteRandom)

	resp, err := h.client.Random(c.UserContext())
	if err != nil {
		return h.HandleUpstreamError(c, common.RouteRandom, err)
	}
	return h.Relay(c, common.RouteRandom, resp)
}
