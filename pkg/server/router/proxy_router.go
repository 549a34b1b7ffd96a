package router

import (
	"net/http"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/config"
	handlers "github.com/NeuralTrust/QuoteGate/pkg/handlers/http"
	"github.com/NeuralTrust/QuoteGate/pkg/server/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

const (
	HealthPath  = "/health"
	PingPath    = "/__/ping"
	VersionPath = "/version"
	DocsPath    = "/docs/*"
	RandomPath  = "/random"
	SearchPath  = "/search"
)

type proxyRouter struct {
	middlewareTransport *middleware.Transport
	quoteMiddlewares    *middleware.Transport
	handlerTransport    handlers.HandlerTransport
	config              *config.Config
}

// NewProxyRouter applies middlewareTransport to every route and
// quoteMiddlewares to the quote routes only.
func NewProxyRouter(
	middlewareTransport *middleware.Transport,
	quoteMiddlewares *middleware.Transport,
	handlerTransport handlers.HandlerTransport,
	cfg *config.Config,
) ServerRouter {
	if middlewareTransport == nil {
		middlewareTransport = middleware.NewTransport()
	}
	if quoteMiddlewares == nil {
		quoteMiddlewares = middleware.NewTransport()
	}
	return &proxyRouter{
		middlewareTransport: middlewareTransport,
		quoteMiddlewares:    quoteMiddlewares,
		handlerTransport:    handlerTransport,
		config:              cfg,
	}
}

func (r *proxyRouter) BuildRoutes(router *fiber.App) error {
	if r.handlerTransport == nil {
		return ErrInvalidHandlerTransport
	}
	handlerTransport := r.handlerTransport.GetTransport()
	if handlerTransport == nil ||
		handlerTransport.RandomQuoteHandler == nil ||
		handlerTransport.SearchQuoteHandler == nil ||
		handlerTransport.GetVersionHandler == nil {
		return ErrInvalidHandlerTransport
	}

	if middlewares := r.middlewareTransport.GetMiddlewares(); len(middlewares) > 0 {
		router.Use(middlewares...)
	}

	router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	router.Get(PingPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})

	router.Get(VersionPath, handlerTransport.GetVersionHandler.Handle)

	if r.config != nil && r.config.Server.DocsFile != "" {
		router.Static(r.config.Server.DocsURL, r.config.Server.DocsFile)
		router.Get(DocsPath, swagger.New(swagger.Config{
			URL: r.config.Server.DocsURL,
		}))
	}

	router.Get(RandomPath, r.quoteMiddlewares.Chain(handlerTransport.RandomQuoteHandler.Handle)...)
	router.Get(SearchPath, r.quoteMiddlewares.Chain(handlerTransport.SearchQuoteHandler.Handle)...)

	return nil
}
