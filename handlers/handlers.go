// handlers/handlers.go
package handlers

import (
	"errors"
	"mime/multipart"
	"strconv"

	"kitchen-challenge-system/middleware"
	"kitchen-challenge-system/services"
	"kitchen-challenge-system/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// API bundles the services the HTTP routes call into.
type API struct {
	Accounts      *services.AccountService
	Challenges    *services.ChallengeService
	Posts         *services.PostService
	Credits       *services.CreditRequestService
	Ledger        *services.LedgerService
	Notifications *services.NotificationService
	Badges        *services.BadgeService
	Storage       utils.Uploader
	Log           *zap.Logger
}

// SetupRoutes registers every route behind the user context middleware.
// Admin routes additionally require the "admin" role.
func SetupRoutes(router fiber.Router, api *API) {
	secured := router.Group("/", middleware.UserContextMiddleware(api.Log))

	setupChallengeRoutes(secured, api)
	setupPostRoutes(secured, api)
	setupCreditRoutes(secured, api)
	setupAccountRoutes(secured, api)
	setupNotificationRoutes(secured, api)

	admin := secured.Group("/admin", middleware.RequireRole("admin"))
	setupAdminRoutes(admin, api)
}

// respondError maps domain errors to statuses. Anything unrecognised is
// logged and hidden behind a 500.
func (a *API) respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, utils.ErrUnsupportedFileType):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientCredits):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrNotParticipant):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrChallengeEnded),
		errors.Is(err, services.ErrInvalidStateTransition):
		status = fiber.StatusConflict
	}

	if status == fiber.StatusInternalServerError {
		a.Log.Error("request failed", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// upload stores fh under prefix after checking its extension.
func (a *API) upload(c *fiber.Ctx, fh *multipart.FileHeader, prefix string, allowed []string) (string, error) {
	key, err := utils.ObjectKey(prefix, fh, allowed)
	if err != nil {
		return "", err
	}
	return a.Storage.Upload(c.UserContext(), fh, key)
}

// formInt64 parses an optional integer form field; missing means 0.
func formInt64(c *fiber.Ctx, key string) (int64, error) {
	v := c.FormValue(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
