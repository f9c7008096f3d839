package handlers

import (
	"kitchen-challenge-system/middleware"

	"github.com/gofiber/fiber/v2"
)

func setupAccountRoutes(r fiber.Router, api *API) {
	r.Get("/accounts/me", api.currentAccount)
	r.Get("/accounts/search", api.searchAccounts)
	r.Get("/achievements", api.listAchievements)
	r.Get("/badges", api.listBadges)
	r.Post("/activity", api.recordActivity)
}

func (a *API) currentAccount(c *fiber.Ctx) error {
	account, err := a.Accounts.GetAccount(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(account)
}

func (a *API) searchAccounts(c *fiber.Ctx) error {
	q := c.Query("q")
	if len(q) < 2 {
		return badRequest(c, "query must be at least 2 characters")
	}
	accounts, err := a.Accounts.SearchAccounts(c.UserContext(), q, c.QueryInt("limit", 20))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(accounts)
}

func (a *API) listAchievements(c *fiber.Ctx) error {
	achievements, err := a.Challenges.ListAchievements(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(achievements)
}

func (a *API) listBadges(c *fiber.Ctx) error {
	badges, err := a.Badges.ListForAccount(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(badges)
}

type activityBody struct {
	Counter string `json:"counter"`
	Delta   int64  `json:"delta"`
}

// recordActivity bumps one of the account's activity counters
// (completed_recipes, shopping_lists_created, ...).
func (a *API) recordActivity(c *fiber.Ctx) error {
	body := activityBody{Delta: 1}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	account, awarded, err := a.Accounts.RecordActivity(c.UserContext(), middleware.UserID(c), body.Counter, body.Delta)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"account":        account,
		"badges_awarded": awarded,
	})
}
