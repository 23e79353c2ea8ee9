package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mansionnet/quizbot/internal/domain"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type playerResponse struct {
	Username               string    `json:"username"`
	TotalScore             int       `json:"total_score"`
	GamesPlayed            int       `json:"games_played"`
	CorrectAnswers         int       `json:"correct_answers"`
	FastestAnswerSeconds   float64   `json:"fastest_answer_seconds"`
	LongestStreak          int       `json:"longest_streak"`
	HighestSingleGameScore int       `json:"highest_single_game_score"`
	LastPlayed             time.Time `json:"last_played"`
}

func toPlayerResponse(p domain.PlayerRecord) playerResponse {
	return playerResponse{
		Username:               p.Username,
		TotalScore:             p.TotalScore,
		GamesPlayed:            p.GamesPlayed,
		CorrectAnswers:         p.CorrectAnswers,
		FastestAnswerSeconds:   p.FastestAnswerSeconds,
		LongestStreak:          p.LongestStreak,
		HighestSingleGameScore: p.HighestSingleGameScore,
		LastPlayed:             p.LastPlayed,
	}
}

func (s *Server) handleLeaderboard(c echo.Context) error {
	limit := defaultLeaderboardLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxLeaderboardLimit)
	}

	players, err := s.players.TopPlayers(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load leaderboard")
	}

	out := make([]playerResponse, len(players))
	for i, p := range players {
		out[i] = toPlayerResponse(p)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handlePlayer(c echo.Context) error {
	username := c.Param("username")

	player, err := s.players.GetPlayer(c.Request().Context(), username)
	if errors.Is(err, domain.ErrPlayerNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "player not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load player")
	}
	return c.JSON(http.StatusOK, toPlayerResponse(*player))
}
