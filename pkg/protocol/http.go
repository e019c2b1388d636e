package protocol

import (
	echo "github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Controllers land in this value group; the http module resolves all of them
// against one router.
const httpControllerTag = `group:"http.controller"`

type HttpRouter = *echo.Echo

// HttpResolvable registers its routes on the shared router.
type HttpResolvable interface {
	Resolve(HttpRouter) error
}

// AsHttpController annotates a controller constructor for the group.
func AsHttpController(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(HttpResolvable)),
		fx.ResultTags(httpControllerTag),
	)
}
