package serverutils

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

const LocalsClientID = "client_id"

// AnonymousUserID derives a stable session identifier from the caller's
// address and user agent. It is not an authenticated identity.
func AnonymousUserID(ip, userAgent string) string {
	sum := md5.Sum([]byte(ip + ":" + userAgent))
	return "user_" + hex.EncodeToString(sum[:])[:16]
}

// ClientIdentityMiddleware stores the anonymous id in ctx.Locals so handlers
// can fall back to it when the body carries no user_id.
func ClientIdentityMiddleware(ctx *fiber.Ctx) error {
	ctx.Locals(LocalsClientID, AnonymousUserID(ctx.IP(), ctx.Get(fiber.HeaderUserAgent)))
	return ctx.Next()
}

func ClientID(ctx *fiber.Ctx) string {
	if id, ok := ctx.Locals(LocalsClientID).(string); ok {
		return id
	}
	return AnonymousUserID(ctx.IP(), ctx.Get(fiber.HeaderUserAgent))
}
