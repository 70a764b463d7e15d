package api

import (
	"github.com/labstack/echo/v4"

	xhttp "PulseWatch/pkg/http"
)

// Routes mounts several handlers on one server.
type Routes []xhttp.Handler

func (r Routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
