package router

import (
	"github.com/labstack/echo/v4"

	"geoplaces/internal/handler"
)

// RegisterPublic registers the endpoints that work without any identity:
// health, the spatial searches, analytics, exports and the auth surface
// itself. Search results are still role-dependent — the authentication
// middleware runs globally and the handlers pick the connection per the
// resolved role — but none of these routes require one.
func RegisterPublic(e *echo.Echo, health *handler.HealthHandler, search *handler.SearchHandler,
	analytics *handler.AnalyticsHandler, export *handler.ExportHandler) {
	e.GET("/health", health.Check)

	e.GET("/within_radius", search.WithinRadius)
	e.GET("/within_bbox", search.WithinBBox)
	e.GET("/nearest", search.Nearest)

	e.GET("/stats", analytics.Stats)
	e.GET("/analytics/states", analytics.States)
	e.GET("/analytics/density", analytics.Density)
	e.GET("/distance_matrix", analytics.DistanceMatrix)

	e.GET("/export/csv", export.CSV)
	e.GET("/export/geojson", export.GeoJSON)
}

// RegisterAuth registers role login and the user account surface. None of
// these need an existing identity except logout, which reads whatever
// token the middleware resolved.
func RegisterAuth(e *echo.Echo, auth *handler.AuthHandler, users *handler.UserHandler) {
	e.POST("/auth/login", auth.Login)
	e.POST("/auth/logout", auth.Logout)
	e.GET("/auth/check", auth.Check)
	e.GET("/auth/roles", auth.ListRoles)

	e.POST("/api/users/register", users.Register)
	e.POST("/api/users/login", users.Login)
	e.GET("/api/users/stats", users.Stats)
}
