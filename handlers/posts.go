package handlers

import (
	"kitchen-challenge-system/middleware"
	"kitchen-challenge-system/services"
	"kitchen-challenge-system/utils"

	"github.com/gofiber/fiber/v2"
)

func setupPostRoutes(r fiber.Router, api *API) {
	r.Get("/posts", api.listPosts)
	r.Post("/posts", api.sharePost)
	r.Delete("/posts/:id", api.deletePost)
}

func (a *API) listPosts(c *fiber.Ctx) error {
	posts, err := a.Posts.ListPosts(c.UserContext(), c.Query("challenge_id"), c.QueryInt("limit", 50))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(posts)
}

func (a *API) sharePost(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	in := services.SharePostInput{
		Message:     c.FormValue("message"),
		ChallengeID: c.FormValue("challenge_id"),
	}

	// check participation before anything is uploaded
	if in.ChallengeID != "" {
		if _, err := a.Challenges.GetParticipation(c.UserContext(), userID, in.ChallengeID); err != nil {
			return a.respondError(c, err)
		}
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "image file is required")
	}
	if in.ImageURL, err = a.upload(c, fh, "posts", utils.PostExtensions); err != nil {
		return a.respondError(c, err)
	}

	post, err := a.Posts.SharePost(c.UserContext(), userID, in)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (a *API) deletePost(c *fiber.Ctx) error {
	if err := a.Posts.DeletePost(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return a.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
