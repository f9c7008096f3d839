package handlers

import (
	"kitchen-challenge-system/middleware"
	"kitchen-challenge-system/services"
	"kitchen-challenge-system/utils"

	"github.com/gofiber/fiber/v2"
)

func setupCreditRoutes(r fiber.Router, api *API) {
	r.Get("/credits/balance", api.creditBalance)
	r.Get("/credits/ledger", api.creditLedger)
	r.Post("/credits/requests", api.submitTopUp)
	r.Get("/credits/requests", api.listTopUps)
	r.Post("/credits/withdrawals", api.submitWithdrawal)
	r.Get("/credits/withdrawals", api.listWithdrawals)
}

func (a *API) creditBalance(c *fiber.Ctx) error {
	balance, err := a.Ledger.Balance(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"credit_balance": balance,
		"display":        utils.FormatCredits(balance),
	})
}

func (a *API) creditLedger(c *fiber.Ctx) error {
	entries, err := a.Ledger.History(c.UserContext(), middleware.UserID(c), c.QueryInt("limit", 50))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(entries)
}

// submitTopUp takes multipart form data: credits and a proof image.
func (a *API) submitTopUp(c *fiber.Ctx) error {
	credits, err := formInt64(c, "credits")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if credits < 1 {
		return badRequest(c, "credits must be at least 1")
	}
	fh, err := c.FormFile("proof")
	if err != nil {
		return badRequest(c, "proof file is required")
	}
	proofURL, err := a.upload(c, fh, "payment-proofs", utils.ProofExtensions)
	if err != nil {
		return a.respondError(c, err)
	}

	req, err := a.Credits.SubmitTopUp(c.UserContext(), middleware.UserID(c), credits, proofURL)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (a *API) listTopUps(c *fiber.Ctx) error {
	reqs, err := a.Credits.ListTopUps(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(reqs)
}

type withdrawalBody struct {
	Credits     int64  `json:"credits"`
	PaymentMode string `json:"payment_mode"`
	PhoneNumber string `json:"phone_number"`
}

func (a *API) submitWithdrawal(c *fiber.Ctx) error {
	var body withdrawalBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	req, err := a.Credits.SubmitWithdrawal(c.UserContext(), middleware.UserID(c), services.WithdrawalInput{
		Credits:     body.Credits,
		PaymentMode: body.PaymentMode,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		return a.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (a *API) listWithdrawals(c *fiber.Ctx) error {
	reqs, err := a.Credits.ListWithdrawals(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(reqs)
}
