package http

import (
	"strings"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/NeuralTrust/QuoteGate/pkg/domain"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/quote"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type searchQuoteHandler struct {
	*BaseHandler
	client quote.Client
}

func NewSearchQuoteHandler(logger *logrus.Logger, client quote.Client) Handler {
	return &searchQuoteHandler{
		BaseHandler: NewBaseHandler(logger),
		client:      client,
	}
}

// Handle @Summary Search quotes
// @Description Forwards the query to the quote API search endpoint and relays its response unchanged
// @Tags Quotes
// @Produce json
// @Param query query string true "Search term"
// @Success 200 {object} map[string]interface{} "Upstream payload"
// @Failure 400 {object} map[string]interface{} "Missing query"
// @Failure 502 {object} map[string]interface{} "Upstream unavailable"
// @Failure 504 {object} map[string]interface{} "Upstream timed out"
// @Router /search [get]
func (h *searchQuoteHandler) Handle(c *fiber.Ctx) error {
	c.Locals(common.RouteContextKey, common.RouteSearch)

	query := c.Query(common.SearchQueryParam)
	if strings.TrimSpace(query) == "" {
		return h.HandleUpstreamError(c, common.RouteSearch, domain.ErrMissingQuery)
	}

	resp, err := h.client.Search(c.UserContext(), query)
	if err != nil {
		return h.HandleUpstreamError(c, common.RouteSearch, err)
	}
	return h.Relay(c, common.RouteSearch, resp)
}
