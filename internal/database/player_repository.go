package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mansionnet/quizbot/internal/domain"
)

// playerColumns must match the Scan order in scanPlayer.
const playerColumns = `username, total_score, games_played, correct_answers, fastest_answer_seconds, longest_streak, highest_single_game_score, last_played`

// PlayerRepo implements domain.PlayerStore backed by PostgreSQL.
type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

func (r *PlayerRepo) GetPlayer(ctx context.Context, username string) (*domain.PlayerRecord, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE username = $1
	`, username)

	player, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// UpsertPlayerAfterAnswer records one correct answer. A single statement so
// concurrent sessions updating the same player cannot lose increments.
func (r *PlayerRepo) UpsertPlayerAfterAnswer(ctx context.Context, username string, pointsAwarded int, answerTimeSeconds float64, streakAfter int) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO players (username, total_score, correct_answers, fastest_answer_seconds, longest_streak, last_played)
		VALUES ($1, $2, 1, $3, $4, NOW())
		ON CONFLICT (username) DO UPDATE SET
			total_score = players.total_score + EXCLUDED.total_score,
			correct_answers = players.correct_answers + 1,
			fastest_answer_seconds = CASE
				WHEN players.fastest_answer_seconds = 0 OR EXCLUDED.fastest_answer_seconds < players.fastest_answer_seconds
				THEN EXCLUDED.fastest_answer_seconds
				ELSE players.fastest_answer_seconds
			END,
			longest_streak = GREATEST(players.longest_streak, EXCLUDED.longest_streak),
			last_played = NOW()
	`, username, pointsAwarded, answerTimeSeconds, streakAfter)
	if err != nil {
		return fmt.Errorf("failed to upsert player answer: %w", err)
	}
	return nil
}

// UpsertPlayerAfterGame records game participation and the single-game high
// score.
func (r *PlayerRepo) UpsertPlayerAfterGame(ctx context.Context, username string, finalGameScore int) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO players (username, games_played, highest_single_game_score, last_played)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (username) DO UPDATE SET
			games_played = players.games_played + 1,
			highest_single_game_score = GREATEST(players.highest_single_game_score, EXCLUDED.highest_single_game_score),
			last_played = NOW()
	`, username, finalGameScore)
	if err != nil {
		return fmt.Errorf("failed to upsert player game: %w", err)
	}
	return nil
}

func (r *PlayerRepo) TopPlayers(ctx context.Context, limit int) ([]domain.PlayerRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+playerColumns+`
		FROM players
		ORDER BY total_score DESC, correct_answers DESC, username ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top players: %w", err)
	}
	defer rows.Close()

	var players []domain.PlayerRecord
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top players: %w", err)
	}
	return players, nil
}

func scanPlayer(row pgx.Row) (*domain.PlayerRecord, error) {
	var p domain.PlayerRecord
	err := row.Scan(
		&p.Username, &p.TotalScore, &p.GamesPlayed, &p.CorrectAnswers,
		&p.FastestAnswerSeconds, &p.LongestStreak, &p.HighestSingleGameScore, &p.LastPlayed,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
