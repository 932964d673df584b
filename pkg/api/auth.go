package api

import (
	echo "github.com/labstack/echo/v5"
)

// Principal is the opaque authenticated caller spec §1 treats the
// authentication layer as out of scope beyond: "sub" (the stable user id
// used as MetaStore's userId) and "email". Populated from trusted
// upstream-proxy headers, mirroring the teacher's extractAuthor
// (pkg/api/auth.go) but requiring sub rather than defaulting it.
type Principal struct {
	Sub   string
	Email string
}

// principalFrom reads the principal attached by an upstream auth proxy.
// A missing X-Forwarded-User means no principal was attached, mapping to
// 401 UNAUTHORIZED at the call site.
func principalFrom(c *echo.Context) (Principal, bool) {
	sub := c.Request().Header.Get("X-Forwarded-User")
	if sub == "" {
		return Principal{}, false
	}
	return Principal{Sub: sub, Email: c.Request().Header.Get("X-Forwarded-Email")}, true
}
