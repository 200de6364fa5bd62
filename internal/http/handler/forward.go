package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"gateway/internal/config"
	"gateway/internal/http/middleware"
)

// RegisterForwarding mounts the transparent forwarder. It must be registered after
// every gateway-owned route: configured route prefixes go to their cluster, longest
// prefix first, and anything left goes to the backend base URL.
func RegisterForwarding(app *fiber.App, backendBaseURL string, pc config.ProxyConfig, log zerolog.Logger) {
	timeout := pc.Timeout()

	for _, r := range pc.OrderedRoutes() {
		cluster := pc.Clusters[r.Cluster]
		balancer := proxy.Balancer(proxy.Config{
			Servers: cluster.Destinations,
			Timeout: timeout,
		})
		app.Use(r.PathPrefix, upstreamErrors(balancer, r.Cluster, log))
		log.Info().
			Str("event", "proxy_route_mounted").
			Str("path_prefix", r.PathPrefix).
			Str("cluster", r.Cluster).
			Strs("destinations", cluster.Destinations).
			Send()
	}

	client := &fasthttp.Client{
		ReadTimeout:              timeout,
		WriteTimeout:             timeout,
		NoDefaultUserAgentHeader: true,
		DisablePathNormalizing:   true,
	}
	base := strings.TrimRight(backendBaseURL, "/")
	app.Use(upstreamErrors(func(c *fiber.Ctx) error {
		return proxy.Do(c, base+c.OriginalURL(), client)
	}, "backend", log))
}

// upstreamErrors turns a failed proxy hop into a 502 with the gateway error payload.
func upstreamErrors(next fiber.Handler, upstream string, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := next(c)
		if err == nil {
			return nil
		}
		log.Error().Err(err).
			Str("event", "proxy_failed").
			Str("request_id", middleware.RequestIDFromCtx(c)).
			Str("upstream", upstream).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Send()
		c.Response().ResetBody()
		return writeError(c, fiber.StatusBadGateway, "BAD_GATEWAY", "upstream unavailable")
	}
}
