package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// JSONErrorHandler renders every error echo surfaces as an ErrorResponse.
// Unexpected errors are logged, and their text is returned only in dev mode.
func JSONErrorHandler(logger *logrus.Logger, devMode bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
			_ = c.JSON(he.Code, ErrorResponse{Error: msg, Code: he.Code})
			return
		}

		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("unhandled error")

		resp := ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		}
		if devMode {
			resp.Details = fmt.Sprint(err)
		}
		_ = c.JSON(http.StatusInternalServerError, resp)
	}
}
