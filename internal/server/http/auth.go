package http

import (
	"crypto/subtle"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Additional-Code/handyman/internal/config"
)

// AdminAuth guards admin routes with HTTP Basic credentials.
func AdminAuth(cfg config.Admin) echo.MiddlewareFunc {
	user := []byte(cfg.Username)
	pass := []byte(cfg.Password)
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "handyman admin",
		Validator: func(username, password string, _ echo.Context) (bool, error) {
			// Evaluate both so timing does not reveal which half matched.
			userOK := subtle.ConstantTimeCompare([]byte(username), user) == 1
			passOK := subtle.ConstantTimeCompare([]byte(password), pass) == 1
			return userOK && passOK, nil
		},
	})
}
