package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/suwandre/arbwatch/internal/models"
)

const (
	defaultOpportunityLimit = 20
	maxOpportunityLimit     = 500
)

// RoundSource is satisfied by *scheduler.Scheduler.
type RoundSource interface {
	Latest() (*models.RoundResult, bool)
	Recent(limit int) []models.Opportunity
}

type RoundHandler struct {
	rounds RoundSource
}

func NewRoundHandler(rounds RoundSource) *RoundHandler {
	return &RoundHandler{rounds}
}

// Handles GET /round.
func (h *RoundHandler) GetRound(c fiber.Ctx) error {
	round, ok := h.rounds.Latest()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no round completed yet",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"round": round,
		"views": round.Views(),
	})
}

// Handles GET /opportunities?limit=N.
func (h *RoundHandler) GetOpportunities(c fiber.Ctx) error {
	limit := defaultOpportunityLimit

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Warn().Str("limit", raw).Msg("rejected opportunities limit")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = min(n, maxOpportunityLimit)
	}

	opps := h.rounds.Recent(limit)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count":         len(opps),
		"opportunities": opps,
	})
}

// Handles GET /health.
func (h *RoundHandler) GetHealth(c fiber.Ctx) error {
	resp := fiber.Map{"status": "ok"}

	if round, ok := h.rounds.Latest(); ok {
		resp["last_round"] = round.Seq
		resp["last_round_at"] = round.CompletedAt.UTC().Format(time.RFC3339)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
