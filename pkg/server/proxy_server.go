package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/config"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/prometheus"
	"github.com/NeuralTrust/QuoteGate/pkg/server/router"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type (
	ProxyServerDI struct {
		Config  *config.Config
		Logger  *logrus.Logger
		Routers []router.ServerRouter
	}
	ProxyServer struct {
		*BaseServer

		mu           sync.Mutex
		proxyAddr    net.Addr
		metricsAddr  net.Addr
		done         chan struct{}
		shutdownOnce sync.Once
		shutdownErr  error
	}
)

func NewProxyServer(di ProxyServerDI) *ProxyServer {
	if di.Config.Metrics.Enabled {
		prometheus.Initialize(prometheus.MetricsConfig{
			EnableLatency:     di.Config.Metrics.EnableLatency,
			EnableUpstream:    di.Config.Metrics.EnableUpstream,
			EnableConnections: di.Config.Metrics.EnableConnections,
		})
	}

	s := &ProxyServer{
		BaseServer: NewBaseServer(di.Config, di.Logger).WithRouters(di.Routers...),
		done:       make(chan struct{}),
	}
	s.BaseServer.setupMetricsEndpoint()
	return s
}

// Run serves the proxy and, when enabled, the metrics endpoint until
// Shutdown is called or either listener fails. A failure stops both.
func (s *ProxyServer) Run() error {
	proxyLn, err := net.Listen(fiber.NetworkTCP, fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on proxy port: %w", err)
	}

	var metricsLn net.Listener
	if s.MetricsApp != nil {
		metricsLn, err = net.Listen(fiber.NetworkTCP, fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.MetricsPort))
		if err != nil {
			_ = proxyLn.Close()
			return fmt.Errorf("failed to listen on metrics port: %w", err)
		}
	}

	s.mu.Lock()
	s.proxyAddr = proxyLn.Addr()
	if metricsLn != nil {
		s.metricsAddr = metricsLn.Addr()
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		s.Logger.WithField("addr", proxyLn.Addr().String()).Info("starting proxy server")
		return s.Router.Listener(proxyLn)
	})
	if metricsLn != nil {
		g.Go(func() error {
			s.Logger.WithField("addr", metricsLn.Addr().String()).Info("starting metrics server")
			return s.MetricsApp.Listener(metricsLn)
		})
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		return s.Shutdown()
	})

	return g.Wait()
}

// Shutdown stops both servers. Calling it more than once returns the
// result of the first call.
func (s *ProxyServer) Shutdown() error {
	s.shutdownOnce.Do(func() {
		close(s.done)
		s.shutdownErr = s.shutdownApps()
	})
	return s.shutdownErr
}

// ProxyAddr returns the bound proxy address once Run has started.
func (s *ProxyServer) ProxyAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proxyAddr
}

// MetricsAddr returns the bound metrics address, nil when metrics are off.
func (s *ProxyServer) MetricsAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsAddr
}

func (s *ProxyServer) shutdownApps() error {
	var errs []error
	if err := s.Router.ShutdownWithTimeout(shutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("proxy server: %w", err))
	}
	if s.MetricsApp != nil {
		if err := s.MetricsApp.ShutdownWithTimeout(shutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	return errors.Join(errs...)
}
