package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"gateway/internal/backend"
	"gateway/internal/http/middleware"
	"gateway/internal/interpreter"
	"gateway/internal/service"
)

// Intercept serves one intercepted route through the gateway service.
// The service answers with either a buffered body or a document stream.
func Intercept(svc service.GatewayService, route service.Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := service.InboundRequest{
			Route:         route.Kind,
			Body:          c.Body(),
			ContentType:   string(c.Request().Header.ContentType()),
			RawQuery:      string(c.Request().URI().QueryString()),
			Authorization: c.Get(fiber.HeaderAuthorization),
			RequestID:     middleware.RequestIDFromCtx(c),
		}
		if route.Kind == interpreter.RouteUploadFile {
			// A body that is not multipart leaves Form nil and is rejected as a missing file.
			if form, err := c.MultipartForm(); err == nil {
				in.Form = form
			}
		}

		res, err := svc.Handle(c.UserContext(), in)
		if err != nil {
			return gatewayError(c, err)
		}
		return writeResult(c, res)
	}
}

func writeResult(c *fiber.Ctx, res *service.Result) error {
	c.Status(res.StatusCode)
	if res.Stream != nil {
		c.Attachment(res.FileName)
		c.Set(fiber.HeaderContentType, res.ContentType)
		size := int(res.Size)
		if res.Size <= 0 {
			size = -1
		}
		return c.SendStream(res.Stream, size)
	}
	c.Set(fiber.HeaderContentType, res.ContentType)
	return c.Send(res.Body)
}

func gatewayError(c *fiber.Ctx, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return writeEnvelope(c, fiber.StatusBadRequest, ve.Message)
	case errors.Is(err, backend.ErrUnavailable):
		return writeError(c, fiber.StatusBadGateway, "BAD_GATEWAY", "backend unavailable")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
