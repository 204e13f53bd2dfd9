package router

import (
	"github.com/labstack/echo/v4"

	"geoplaces/internal/handler"
	"geoplaces/internal/middleware"
	"geoplaces/internal/model"
)

// RegisterPlaces registers the place mutation surface. The middleware
// here fails fast with a clear message; the handlers re-check through
// the permission gate and the database grants still apply underneath.
func RegisterPlaces(e *echo.Echo, reg *model.Registry, places *handler.PlaceHandler, upload *handler.UploadHandler) {
	e.POST("/places/add", places.Add, middleware.RequirePermission(reg, model.PermInsert))
	e.POST("/places/upload-csv", upload.CSV, middleware.RequireRole(model.RoleAdmin))

	e.GET("/api/places/my-added", places.MyAdded, middleware.RequireUser())
	e.PUT("/api/places/:id", places.Update)
	e.DELETE("/api/places/:id", places.Delete)
}
