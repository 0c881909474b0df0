package routes

import (
	"time"

	"winzone/controllers/admin"
	"winzone/controllers/public"
	"winzone/metrics"
	"winzone/middlewares"
	"winzone/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Deps is everything the HTTP surface talks to.
type Deps struct {
	Overrider   admin.Overrider
	Retailers   admin.RetailerStore
	History     admin.HistoryStore
	Results     public.ResultStore
	Now         func() time.Time
	AdminSecret string
}

// NewDeps wires the HTTP surface to the settlement engine and its store.
func NewDeps(engine *settlement.Engine, store *settlement.GormStore, adminSecret string) Deps {
	return Deps{
		Overrider:   engine,
		Retailers:   store,
		History:     store,
		Results:     store,
		Now:         engine.Now,
		AdminSecret: adminSecret,
	}
}

func Setup(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Get("/public/results", public.Results(d.Results, d.Now))

	adminroutes := app.Group("/admin", middlewares.AdminAuth(d.AdminSecret))
	adminroutes.Post("/force-winner", admin.ForceWinner(d.Overrider))
	adminroutes.Get("/draws", admin.DrawHistory(d.History))
	adminroutes.Get("/retailers/:id", admin.RetailerInfo(d.Retailers))
	adminroutes.Post("/retailers/:id/settings", admin.UpdateRetailerSettings(d.Retailers))
}
