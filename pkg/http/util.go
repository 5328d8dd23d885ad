package http

import (
	"github.com/labstack/echo/v4"

	xutil "StockPilot/pkg/util"
)

// QueryInt reads an integer query parameter or returns def if empty/invalid.
func QueryInt(c echo.Context, name string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(name), def)
}

// QueryList reads a list query parameter given either repeated or comma separated.
func QueryList(c echo.Context, name string) []string {
	return xutil.SplitLists(c.QueryParams()[name])
}
