package handler

import (
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gateway/docs"
	"gateway/internal/service"
	"gateway/internal/storage"
)

// Deps are the collaborators the HTTP layer is built from.
// DB and Journal are nil when no journal database is configured.
type Deps struct {
	APIPrefix string
	Gateway   service.GatewayService
	Journal   service.SideEffectService
	DB        *sql.DB
	Store     storage.Storage
	Gatherer  prometheus.Gatherer
}

// RegisterRoutes attaches the intercepted API routes to the public listener.
// Everything else on that listener belongs to the transparent forwarder, which is
// mounted after these by RegisterForwarding.
func RegisterRoutes(app *fiber.App, d Deps) {
	for _, r := range service.InterceptedRoutes {
		app.Add(r.Method, d.APIPrefix+"/"+r.Path, Intercept(d.Gateway, r))
	}
}

// RegisterAdminRoutes attaches the gateway's own operational endpoints: health,
// metrics, API docs and the side-effect journal. They are served on the admin
// listener so no backend path is shadowed.
func RegisterAdminRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB, d.Store))
	app.Get("/healthz", LivenessProbe())

	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})

	if d.Journal != nil {
		g := app.Group("/gateway")
		g.Get("/side-effects", ListSideEffects(d.Journal))
		g.Get("/side-effects/:id", GetSideEffect(d.Journal))
	}
}
