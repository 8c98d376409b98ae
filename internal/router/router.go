package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/riskops/backend/api/handler"
)

type Handlers struct {
	Risk   *apiHandler.RiskHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Risk routes. Static paths precede the {id} wildcard.
	r.GET("/api/v1/risks", handlers.Risk.List)
	r.POST("/api/v1/risks", handlers.Risk.Create)
	r.GET("/api/v1/risks/search", handlers.Risk.Search)
	r.GET("/api/v1/risks/statistics", handlers.Risk.Statistics)
	r.POST("/api/v1/risks/bulk/status", handlers.Risk.BulkChangeStatus)
	r.GET("/api/v1/risks/{id}", handlers.Risk.Get)
	r.PUT("/api/v1/risks/{id}", handlers.Risk.Update)
	r.DELETE("/api/v1/risks/{id}", handlers.Risk.Delete)
	r.PATCH("/api/v1/risks/{id}/status", handlers.Risk.ChangeStatus)

	return r
}
