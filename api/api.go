package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/database"
	"github.com/ogzhnbygl/vivolearn/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	store         database.Storage
}

func NewAPIServer(listenAddress string, store database.Storage) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:   "VivoLearn API",
			BodyLimit: 8 * 1024 * 1024, // multipart cover uploads
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				if e, ok := err.(*fiber.Error); ok {
					return response.Error(c, e.Code, e.Message, "HTTP_ERROR")
				}
				log.Printf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
				return response.InternalServerError(c, "")
			},
		}),
		listenAddress: listenAddress,
		store:         store,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Println("Starting API Server")
	log.Printf("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}
