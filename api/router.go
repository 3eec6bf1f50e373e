package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/suwandre/arbwatch/api/handlers"
)

func SetupRoutes(app *fiber.App, rounds handlers.RoundSource) {
	roundHandler := handlers.NewRoundHandler(rounds)

	v1 := app.Group("/v1")

	v1.Get("/round", roundHandler.GetRound)
	v1.Get("/opportunities", roundHandler.GetOpportunities)
	v1.Get("/health", roundHandler.GetHealth)
}
