package handlers

import (
	"kitchen-challenge-system/middleware"
	"kitchen-challenge-system/services"
	"kitchen-challenge-system/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func setupChallengeRoutes(r fiber.Router, api *API) {
	r.Get("/challenges", api.listChallenges)
	r.Post("/challenges", api.createChallenge)
	r.Get("/challenges/:id", api.getChallenge)
	r.Delete("/challenges/:id", api.deleteChallenge)
	r.Post("/challenges/:id/join", api.joinChallenge)
	r.Post("/challenges/:id/settle", api.settleChallenge)
	r.Get("/challenges/:id/leaderboard", api.challengeLeaderboard)
	r.Get("/leaderboard", api.activeLeaderboards)
}

func (a *API) listChallenges(c *fiber.Ctx) error {
	filter := services.ChallengeFilter{
		ActiveOnly: c.QueryBool("active", false),
		CreatorID:  c.Query("creator_id"),
		Query:      c.Query("q"),
		Limit:      c.QueryInt("limit", 50),
	}
	if c.QueryBool("mine", false) {
		filter.CreatorID = middleware.UserID(c)
	}
	challenges, err := a.Challenges.ListChallenges(c.UserContext(), filter)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(challenges)
}

// createChallenge accepts multipart form data. The duration is either
// duration_seconds or any mix of days/hours/minutes/seconds.
func (a *API) createChallenge(c *fiber.Ctx) error {
	credits, err := formInt64(c, "credits_required")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var parts [5]int64
	for i, key := range []string{"duration_seconds", "days", "hours", "minutes", "seconds"} {
		if parts[i], err = formInt64(c, key); err != nil {
			return badRequest(c, err.Error())
		}
	}
	duration := parts[0]
	if duration == 0 {
		if duration, err = services.DurationFromParts(parts[1], parts[2], parts[3], parts[4]); err != nil {
			return a.respondError(c, err)
		}
	}

	in := services.CreateChallengeInput{
		CreatorID:       middleware.UserID(c),
		Name:            c.FormValue("name"),
		CreditsRequired: credits,
		DurationSeconds: duration,
	}
	// validate before anything is uploaded
	if err := services.ValidateChallengeInput(in); err != nil {
		return a.respondError(c, err)
	}
	if fh, err := c.FormFile("icon"); err == nil {
		if in.IconURL, err = a.upload(c, fh, "challenge-icons", utils.IconExtensions); err != nil {
			return a.respondError(c, err)
		}
	}

	challenge, err := a.Challenges.CreateChallenge(c.UserContext(), in)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

func (a *API) getChallenge(c *fiber.Ctx) error {
	challenge, err := a.Challenges.GetChallenge(c.UserContext(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(challenge)
}

func (a *API) deleteChallenge(c *fiber.Ctx) error {
	if err := a.Challenges.DeleteChallenge(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return a.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *API) joinChallenge(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	participation, err := a.Challenges.JoinChallenge(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	a.Log.Info("challenge joined", zap.String("user_id", userID), zap.String("challenge_id", participation.ChallengeID))
	return c.Status(fiber.StatusCreated).JSON(participation)
}

func (a *API) settleChallenge(c *fiber.Ctx) error {
	result, err := a.Challenges.Settle(c.UserContext(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(result)
}

func (a *API) challengeLeaderboard(c *fiber.Ctx) error {
	standings, err := a.Challenges.Leaderboard(c.UserContext(), c.Params("id"), c.QueryInt("limit", 10))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{"challenge_id": c.Params("id"), "standings": standings})
}

func (a *API) activeLeaderboards(c *fiber.Ctx) error {
	boards, err := a.Challenges.ActiveLeaderboards(c.UserContext(), c.QueryInt("top", 3))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(boards)
}
