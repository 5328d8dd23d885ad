package http

import "github.com/labstack/echo/v4"

// Handler mounts a group of routes on the server. Handlers register their own
// path prefixes and route-level middleware.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(e *echo.Echo)

func (f HandlerFunc) RegisterRoutes(e *echo.Echo) { f(e) }
