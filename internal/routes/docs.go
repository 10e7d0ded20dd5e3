package routes

import "github.com/gofiber/fiber/v2"

type docEndpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Notes  string `json:"notes,omitempty"`
}

var docEndpoints = []docEndpoint{
	{Method: "POST", Path: "/auth/register", Notes: "full_name, email, password, type (user|club)"},
	{Method: "POST", Path: "/auth/login"},
	{Method: "GET", Path: "/auth/me"},
	{Method: "PATCH", Path: "/auth/me"},
	{Method: "POST", Path: "/auth/update-profile-picture", Notes: "multipart field: avatar"},
	{Method: "POST", Path: "/sessions", Notes: "body: {session, place}"},
	{Method: "GET", Path: "/sessions", Notes: "query: user_id, status, search, page, limit"},
	{Method: "GET", Path: "/sessions/:id"},
	{Method: "PATCH", Path: "/sessions/:id", Notes: "partial; is_delete soft-deletes"},
	{Method: "GET", Path: "/places/:id"},
	{Method: "PATCH", Path: "/places/:id"},
	{Method: "POST", Path: "/bookings"},
	{Method: "GET", Path: "/bookings", Notes: "query: user_id"},
	{Method: "GET", Path: "/bookings/booking-for-club", Notes: "query: user_id"},
	{Method: "GET", Path: "/payments", Notes: "query: user_id"},
	{Method: "GET", Path: "/conversations", Notes: "query: user_id, page, limit"},
	{Method: "POST", Path: "/conversations", Notes: "body: {user1_id, user2_id?}"},
	{Method: "GET", Path: "/messages", Notes: "query: conversation_id, page, limit; newest first"},
	{Method: "POST", Path: "/messages"},
	{Method: "GET", Path: "/realtime", Notes: "websocket; query: token; pushes message INSERT events"},
}

// registerDocs exposes a machine-readable route listing. Only mounted when
// ENABLE_API_DOCS is set in a development environment.
func registerDocs(app *fiber.App) {
	app.Get("/docs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"endpoints": docEndpoints})
	})
}
