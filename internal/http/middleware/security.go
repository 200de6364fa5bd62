package middleware

import "github.com/gofiber/fiber/v2"

// securityHeaders are added to every response, proxied ones included.
var securityHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "no-referrer"},
	{"Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload"},
	{"Content-Security-Policy", "default-src 'self'; script-src 'self'; object-src 'none'; frame-ancestors 'none';"},
	{"Permissions-Policy", "geolocation=(), camera=(), microphone=()"},
}

// SecurityHeaders adds the hardening headers and strips server identification.
// Headers are applied after the chain returns so proxied responses get them too;
// a value the upstream already sent is left in place.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil {
			// Let the error handler write the body first so the headers land on it.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		h := &c.Response().Header
		for _, kv := range securityHeaders {
			if len(h.Peek(kv[0])) == 0 {
				h.Set(kv[0], kv[1])
			}
		}
		h.Del(fiber.HeaderServer)
		h.Del(fiber.HeaderXPoweredBy)
		return err
	}
}
