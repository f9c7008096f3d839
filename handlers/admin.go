package handlers

import (
	"kitchen-challenge-system/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func setupAdminRoutes(r fiber.Router, api *API) {
	r.Get("/notifications", api.adminNotifications)

	r.Get("/credit-requests", api.pendingTopUps)
	r.Post("/credit-requests/:id/approve", api.approveTopUp)
	r.Post("/credit-requests/:id/reject", api.rejectTopUp)

	r.Get("/withdrawals", api.pendingWithdrawals)
	r.Post("/withdrawals/:id/approve", api.approveWithdrawal)
	r.Post("/withdrawals/:id/reject", api.rejectWithdrawal)

	r.Post("/accounts/:id/credits", api.grantCredits)
}

func (a *API) adminNotifications(c *fiber.Ctx) error {
	notifications, err := a.Notifications.ListForAdmins(c.UserContext())
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(notifications)
}

func (a *API) pendingTopUps(c *fiber.Ctx) error {
	reqs, err := a.Credits.ListPendingTopUps(c.UserContext())
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(reqs)
}

func (a *API) approveTopUp(c *fiber.Ctx) error {
	req, err := a.Credits.ApproveTopUp(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(req)
}

func (a *API) rejectTopUp(c *fiber.Ctx) error {
	req, err := a.Credits.RejectTopUp(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(req)
}

func (a *API) pendingWithdrawals(c *fiber.Ctx) error {
	reqs, err := a.Credits.ListPendingWithdrawals(c.UserContext())
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(reqs)
}

func (a *API) approveWithdrawal(c *fiber.Ctx) error {
	req, err := a.Credits.ApproveWithdrawal(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(req)
}

func (a *API) rejectWithdrawal(c *fiber.Ctx) error {
	req, err := a.Credits.RejectWithdrawal(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(req)
}

type grantBody struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

func (a *API) grantCredits(c *fiber.Ctx) error {
	var body grantBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	adminID := middleware.UserID(c)
	balance, err := a.Credits.GrantCredits(c.UserContext(), adminID, c.Params("id"), body.Amount, body.Note)
	if err != nil {
		return a.respondError(c, err)
	}
	a.Log.Info("credits granted", zap.String("admin_id", adminID), zap.String("account_id", c.Params("id")), zap.Int64("amount", body.Amount))
	return c.JSON(fiber.Map{"account_id": c.Params("id"), "credit_balance": balance})
}
