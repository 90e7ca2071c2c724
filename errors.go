package folio

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// httpErrorHandler renders every error as {"error": message}. Handler
// errors that are not *echo.HTTPError are logged and reported as a generic 500.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal server error"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
		msg = "Not found"
	}

	if code >= http.StatusInternalServerError {
		a.log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Msg("server error")
		msg = "Internal server error"
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"error": msg})
	}
	if err != nil {
		a.log.Error().Err(err).Msg("write error response")
	}
}
