package handlers

import (
	"strconv"

	"github.com/arnold/memoboard-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

// UploadAttachment stores the multipart "file" field against the target
// named by the targetType and targetId form fields.
func (h *Handler) UploadAttachment(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided",
		})
	}
	body, err := file.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	attachment, err := h.Attachments.Create(c.UserContext(), owner, c.FormValue("targetType"), c.FormValue("targetId"), services.Upload{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        body,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(attachment)
}

func (h *Handler) GetAttachments(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	attachments, err := h.Attachments.List(c.UserContext(), owner, c.Query("targetType"), c.Query("targetId"))
	if err != nil {
		return err
	}
	return c.JSON(attachments)
}

// DownloadAttachment streams the stored content.
func (h *Handler) DownloadAttachment(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	attachment, body, err := h.Attachments.Open(c.UserContext(), owner, id)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+strconv.Quote(attachment.FileName))
	// fasthttp closes the stream once it has been written.
	return c.SendStream(body, int(attachment.Size))
}

func (h *Handler) DeleteAttachment(c *fiber.Ctx) error {
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Attachments.Delete(c.UserContext(), owner, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
