package handlers

import (
	"log"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/oakcrestrealty/socialcast/internal/queue"
	"github.com/oakcrestrealty/socialcast/internal/service"
	"github.com/oakcrestrealty/socialcast/internal/service/platform"
	"github.com/oakcrestrealty/socialcast/internal/transfer"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

type SocialHandler struct {
	ss          service.SocialService
	ds          service.DistributionService
	registry    *platform.Registry
	asynqClient *asynq.Client
}

func NewSocialHandler(ss service.SocialService, ds service.DistributionService, registry *platform.Registry, asynqClient *asynq.Client) *SocialHandler {
	return &SocialHandler{
		ss:          ss,
		ds:          ds,
		registry:    registry,
		asynqClient: asynqClient,
	}
}

func (h *SocialHandler) Connect(c *fiber.Ctx) error {
	resp, err := h.ss.BeginConnect(c.Context(), c.Params("platform"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if c.Query("redirect") == "true" {
		return c.Redirect(resp.AuthURL, fiber.StatusTemporaryRedirect)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *SocialHandler) Callback(c *fiber.Ctx) error {
	var req transfer.CallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Platform == "" || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "platform and code are required",
		})
	}

	acc, err := h.ss.HandleCallback(c.Context(), &req)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(callbackStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":  true,
		"platform": acc.Platform,
		"username": acc.AccountUsername,
	})
}

// Publish pushes one post to one platform synchronously and returns the
// outcome. Request-shape problems are rejected before the ledger is touched;
// anything that fails after that comes back as a 500 with the ledger already
// marked failed.
func (h *SocialHandler) Publish(c *fiber.Ctx) error {
	var req transfer.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	postID, err := strconv.ParseInt(req.PostID, 10, 64)
	if err != nil || postID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_id is required",
		})
	}
	if req.Platform == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "platform is required",
		})
	}
	if _, err := h.registry.Get(req.Platform); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	dist, err := h.ds.Publish(c.Context(), postID, req.Platform)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(publishStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":           true,
		"platform_post_id":  dist.PlatformPostID,
		"platform_post_url": dist.PlatformPostURL,
	})
}

// Distribute fans one post out to several platforms through the task queue.
func (h *SocialHandler) Distribute(c *fiber.Ctx) error {
	var req transfer.DistributeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.PostID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_id is required",
		})
	}

	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = h.registry.Names()
	}
	for _, name := range platforms {
		if _, err := h.registry.Get(name); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	for _, name := range platforms {
		payload := queue.DistributePostPayload{PostID: req.PostID, Platform: name}
		if err := queue.EnqueueDistribution(h.asynqClient, payload); err != nil {
			log.Printf("Failed to enqueue distribution for post %d to %s: %v", req.PostID, name, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to queue distribution",
			})
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":   true,
		"platforms": platforms,
	})
}

func (h *SocialHandler) Status(c *fiber.Ctx) error {
	postID, err := strconv.ParseInt(c.Params("post_id"), 10, 64)
	if err != nil || postID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_id is required",
		})
	}

	distributions, err := h.ds.Status(c.Context(), postID)
	if err != nil {
		if errutil.IsKind(err, errutil.KindNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch distribution status",
		})
	}

	return c.Status(fiber.StatusOK).JSON(distributions)
}

func (h *SocialHandler) ListAccounts(c *fiber.Ctx) error {
	accountList, err := h.ss.List(c.Context())
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *SocialHandler) Disconnect(c *fiber.Ctx) error {
	var req transfer.DisconnectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.ss.Disconnect(c.Context(), req.Platform); err != nil {
		if errutil.IsKind(err, errutil.KindValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// callbackStatus keeps 400 for request-shape problems; exchange and
// configuration failures are server-side and come back as 500.
func callbackStatus(err error) int {
	if errutil.IsKind(err, errutil.KindValidation) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// publishStatus maps orchestrator errors. A missing account is a caller
// problem, a missing post is 404, everything inside the publish path itself
// is a 500 regardless of whether a retry could succeed.
func publishStatus(err error) int {
	switch errutil.KindOf(err) {
	case errutil.KindNotFound:
		return fiber.StatusNotFound
	case errutil.KindNotConnected:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
