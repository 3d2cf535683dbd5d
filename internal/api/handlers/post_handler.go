package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/oakcrestrealty/socialcast/internal/service"
	"github.com/oakcrestrealty/socialcast/internal/transfer"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["files"]
	}

	postID, err := h.s.Create(c.Context(), &transfer.PostCreation{
		Title:    c.FormValue("title"),
		Excerpt:  c.FormValue("excerpt"),
		Slug:     c.FormValue("slug"),
		PostType: c.FormValue("post_type"),
		Status:   c.FormValue("status"),
	}, files)

	if err != nil {
		if errutil.IsKind(err, errutil.KindValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"post_id": postID,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	postId := c.QueryInt("id", 0)

	if postId != 0 {
		post, err := h.s.Info(c.Context(), int64(postId))
		if err != nil {
			if errutil.IsKind(err, errutil.KindNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unable to fetch post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) UpdatePostStatus(c *fiber.Ctx) error {
	postId := c.QueryInt("id", 0)
	status := c.Query("status")

	err := h.s.UpdateStatus(c.Context(), int64(postId), status)
	if err != nil {
		switch errutil.KindOf(err) {
		case errutil.KindValidation:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errutil.KindNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to update post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postId := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), int64(postId))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
