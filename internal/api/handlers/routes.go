package handlers

import "github.com/gofiber/fiber/v2"

type Handlers struct {
	Auth          *AuthHandler
	User          *UserHandler
	ApiKeys       *ApiKeyHandler
	Organizations *OrganizationHandler
	Platforms     *PlatformHandler
	Posts         *PostHandler
	Media         *MediaHandler
}

// Register mounts every route. auth guards the /api group.
func (h *Handlers) Register(app *fiber.App, auth fiber.Handler) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/login", h.Auth.Login)
	app.Get("/login/callback", h.Auth.LoginCallbackHandler)
	app.Post("/logout", h.Auth.Logout)
	app.Get("/auth/:platform/callback", h.Platforms.CallbackHandler)

	api := app.Group("/api", auth)

	api.Get("/user/info", h.User.GetUserInfo)
	api.Delete("/user", h.User.RemoveUser)

	api.Post("/api_key/new", h.ApiKeys.CreateApiKey)
	api.Get("/api_key/list", h.ApiKeys.ListKeys)
	api.Post("/api_key/remove", h.ApiKeys.RemoveAPIKey)

	api.Get("/platforms", h.Platforms.ListPlatforms)
	api.Get("/auth/:platform", h.Platforms.AddSocialAccount)

	api.Post("/organizations", h.Organizations.Create)
	api.Get("/organizations", h.Organizations.List)
	api.Get("/organizations/:id", h.Organizations.Get)
	api.Post("/organizations/:id/members", h.Organizations.AddMember)

	api.Post("/accounts", h.Platforms.CreateSocialAccount)
	api.Get("/accounts", h.Platforms.ListSocialAccounts)
	api.Get("/accounts/:id", h.Platforms.GetSocialAccount)
	api.Delete("/accounts/:id", h.Platforms.DeleteSocialAccount)

	api.Post("/posts", h.Posts.CreatePost)
	api.Get("/posts", h.Posts.ListPosts)
	api.Get("/posts/:id", h.Posts.GetPost)
	api.Post("/posts/:id/schedule", h.Posts.SchedulePost)
	api.Post("/posts/:id/publish", h.Posts.PublishPost)
	api.Get("/posts/:id/history", h.Posts.PostHistory)
	api.Delete("/posts/:id", h.Posts.RemovePost)

	api.Post("/media", h.Media.Upload)
	api.Get("/media", h.Media.List)
	api.Delete("/media/:id", h.Media.Remove)
}
