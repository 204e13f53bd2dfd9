package router

import (
	"github.com/labstack/echo/v4"

	"geoplaces/internal/handler"
	"geoplaces/internal/middleware"
	"geoplaces/internal/model"
)

// RegisterUser registers everything gated on a user account: profile,
// the three personal lists, groups and group routes. The place-status
// endpoint stays outside the gate because anonymous callers get all-false
// defaults instead of a 401.
func RegisterUser(e *echo.Echo, users *handler.UserHandler, lists *handler.ListHandler,
	groups *handler.GroupHandler, routes *handler.RouteHandler) {
	e.GET("/api/user/place-status/:place_id", lists.PlaceStatus)

	g := e.Group("/api", middleware.RequireUser())
	g.GET("/users/profile", users.Profile)

	g.GET("/user/visited", lists.Get(model.ListVisited))
	g.POST("/user/visited", lists.Add(model.ListVisited))
	g.DELETE("/user/visited/:place_id", lists.Remove(model.ListVisited))

	g.GET("/user/wishlist", lists.Get(model.ListWishlist))
	g.POST("/user/wishlist", lists.Add(model.ListWishlist))
	g.DELETE("/user/wishlist/:place_id", lists.Remove(model.ListWishlist))

	g.GET("/user/liked", lists.Get(model.ListLiked))
	g.POST("/user/liked", lists.Add(model.ListLiked))
	g.DELETE("/user/liked/:place_id", lists.Remove(model.ListLiked))

	g.POST("/groups", groups.Create)
	g.GET("/groups", groups.Mine)
	g.GET("/groups/:id", groups.Details)
	g.POST("/groups/:id/members", groups.AddMember)
	g.DELETE("/groups/:id/members/:member_id", groups.RemoveMember)
	g.GET("/groups/:id/places", groups.Places)

	g.GET("/groups/:id/route", routes.Get)
	g.POST("/groups/:id/route", routes.SetDefault)
	g.PUT("/groups/:id/route", routes.SetPersonal)
	g.DELETE("/groups/:id/route/places/:place_id", routes.RemoveStop)
}
