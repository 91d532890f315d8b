package handlers

import (
	"net/http"

	"chat-relay/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UploadFileHandler saves the multipart field "file" and describes it for a later send.
func UploadFileHandler(blobs services.BlobStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
		}

		src, err := fileHeader.Open()
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read uploaded file"})
		}
		defer src.Close()

		res, err := blobs.Save(c.UserContext(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), src)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(http.StatusCreated).JSON(res)
	}
}
