// Package ctx
package ctx

import (
	"relay-api/internal/shared"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Context struct {
	echo.Context
	Log      *zap.SugaredLogger
	Reqid    string
	Identity *shared.Identity
}
