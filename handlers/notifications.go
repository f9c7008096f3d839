package handlers

import (
	"kitchen-challenge-system/middleware"

	"github.com/gofiber/fiber/v2"
)

func setupNotificationRoutes(r fiber.Router, api *API) {
	r.Get("/notifications", api.listNotifications)
	r.Get("/notifications/counts", api.notificationCounts)
	r.Patch("/notifications/viewed", api.markAllNotificationsViewed)
	r.Patch("/notifications/:id/viewed", api.markNotificationViewed)
}

func (a *API) listNotifications(c *fiber.Ctx) error {
	notifications, err := a.Notifications.ListForAccount(c.UserContext(), middleware.UserID(c),
		c.QueryBool("unviewed", false), c.QueryInt("limit", 50))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(notifications)
}

func (a *API) notificationCounts(c *fiber.Ctx) error {
	counts, err := a.Notifications.Counts(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(counts)
}

func (a *API) markNotificationViewed(c *fiber.Ctx) error {
	if err := a.Notifications.MarkViewed(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "notification marked as viewed"})
}

func (a *API) markAllNotificationsViewed(c *fiber.Ctx) error {
	n, err := a.Notifications.MarkAllViewed(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}
