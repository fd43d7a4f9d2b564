package helpers

import (
	"github.com/labstack/echo/v4"
)

type ctxKey string

const (
	keyIdentity ctxKey = "identity"
)

func SetIdentity(c echo.Context, identity string) { c.Set(string(keyIdentity), identity) }
func GetIdentityRaw(c echo.Context) (string, bool) {
	v := c.Get(string(keyIdentity))
	id, ok := v.(string)
	return id, ok && id != ""
}
