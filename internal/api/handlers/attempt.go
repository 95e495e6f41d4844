package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"quizforge/internal/db"
	"quizforge/internal/models"
)

// HandleCreateQuizAttempt starts a new attempt for a quiz.
func (h *Handler) HandleCreateQuizAttempt(c *gin.Context) {
	ctx := c.Request.Context()

	userID, profile, ok := h.currentUser(c)
	if !ok {
		return
	}

	quizID, err := uuid.Parse(c.Param("quizId"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid quiz ID"})
		return
	}

	dbQuiz, err := h.DB.Queries.GetQuizByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{Error: "quiz not found"})
			return
		}
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to verify quiz %s before attempt", quizID), err)
		return
	}

	attempt, err := h.DB.Queries.CreateQuizAttempt(ctx, db.CreateQuizAttemptParams{
		QuizID: quizID,
		UserID: userID,
	})
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to start attempt for quiz %s", quizID), err)
		return
	}

	h.log.Info("quiz attempt started", "attempt_id", attempt.ID, "quiz_id", quizID, "user_id", userID)

	h.logActivity(ctx, userID, db.ActivityActionQuizAttemptStart,
		db.NullActivityTargetType{ActivityTargetType: db.ActivityTargetTypeQuizAttempt, Valid: true},
		pgtype.UUID{Bytes: attempt.ID, Valid: true},
		map[string]interface{}{"quiz_id": quizID.String()})

	h.sendDiscordNotification(DiscordEmbed{
		Title: "Quiz Attempt Started",
		Color: 0x2196F3,
		Fields: []DiscordEmbedField{
			{Name: "Quiz", Value: dbQuiz.Title, Inline: true},
			{Name: "By", Value: fmt.Sprintf("%s (%s)", profile.Name, profile.Email), Inline: true},
		},
	})

	c.JSON(http.StatusCreated, gin.H{"attemptId": attempt.ID.String()})
}

// loadOwnedAttempt fetches an attempt and checks it belongs to userID. When
// it returns false the request has already been aborted.
func (h *Handler) loadOwnedAttempt(c *gin.Context, userID uuid.UUID) (db.QuizAttempt, bool) {
	attemptID, err := uuid.Parse(c.Param("attemptId"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid attempt ID"})
		return db.QuizAttempt{}, false
	}

	attempt, err := h.DB.Queries.GetQuizAttempt(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{Error: "quiz attempt not found"})
			return db.QuizAttempt{}, false
		}
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load attempt %s", attemptID), err)
		return db.QuizAttempt{}, false
	}
	if attempt.UserID != userID {
		c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{Error: "you do not have permission to access this quiz attempt"})
		return db.QuizAttempt{}, false
	}
	return attempt, true
}

// HandleGetQuizAttempt returns one attempt with its saved answers.
func (h *Handler) HandleGetQuizAttempt(c *gin.Context) {
	ctx := c.Request.Context()

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}
	attempt, ok := h.loadOwnedAttempt(c, userID)
	if !ok {
		return
	}

	dbAnswers, err := h.DB.Queries.ListAttemptAnswersByAttempt(ctx, attempt.ID)
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load answers for attempt %s", attempt.ID), err)
		return
	}

	answers := make([]models.AttemptAnswer, 0, len(dbAnswers))
	for _, a := range dbAnswers {
		answers = append(answers, models.AttemptAnswer{
			QuestionID:       a.QuestionID,
			SelectedOptionID: a.SelectedOptionID.Bytes,
			IsCorrect:        a.IsCorrect.Bool,
		})
	}

	detail := models.AttemptDetail{
		ID:        attempt.ID,
		QuizID:    attempt.QuizID,
		UserID:    attempt.UserID,
		StartTime: attempt.StartTime,
		Answers:   answers,
	}
	if attempt.Score.Valid {
		score := attempt.Score.Int32
		detail.Score = &score
	}
	if attempt.EndTime.Valid {
		end := attempt.EndTime.Time
		detail.EndTime = &end
	}

	c.JSON(http.StatusOK, detail)
}

type saveAttemptAnswerRequest struct {
	QuestionID       uuid.UUID `json:"questionId" binding:"required"`
	SelectedOptionID uuid.UUID `json:"selectedOptionId" binding:"required"`
}

// HandleSaveAttemptAnswer records or replaces the answer to one question of
// an open attempt. Correctness is resolved server-side and never trusted
// from the client.
func (h *Handler) HandleSaveAttemptAnswer(c *gin.Context) {
	ctx := c.Request.Context()

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}
	attempt, ok := h.loadOwnedAttempt(c, userID)
	if !ok {
		return
	}
	if attempt.EndTime.Valid {
		c.AbortWithStatusJSON(http.StatusConflict, models.ErrorResponse{Error: "this quiz attempt has already been finished"})
		return
	}

	var req saveAttemptAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	isCorrect, err := h.DB.Queries.GetOptionCorrectness(ctx, req.SelectedOptionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid selected option ID"})
			return
		}
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to check option %s", req.SelectedOptionID), err)
		return
	}

	if _, err := h.DB.Queries.UpsertAttemptAnswer(ctx, db.UpsertAttemptAnswerParams{
		QuizAttemptID:    attempt.ID,
		QuestionID:       req.QuestionID,
		SelectedOptionID: pgtype.UUID{Bytes: req.SelectedOptionID, Valid: true},
		IsCorrect:        pgtype.Bool{Bool: isCorrect, Valid: true},
	}); err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to save answer for attempt %s", attempt.ID), err)
		return
	}

	c.Status(http.StatusOK)
}

// HandleFinishQuizAttempt closes an attempt: the score is counted from the
// saved answers and the end time set. Finishing twice is a conflict.
func (h *Handler) HandleFinishQuizAttempt(c *gin.Context) {
	ctx := c.Request.Context()

	userID, profile, ok := h.currentUser(c)
	if !ok {
		return
	}
	attempt, ok := h.loadOwnedAttempt(c, userID)
	if !ok {
		return
	}
	if attempt.EndTime.Valid {
		c.AbortWithStatusJSON(http.StatusConflict, models.ErrorResponse{Error: "this quiz attempt has already been finished"})
		return
	}

	score, err := h.DB.Queries.CalculateQuizAttemptScore(ctx, attempt.ID)
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to calculate score for attempt %s", attempt.ID), err)
		return
	}

	updated, err := h.DB.Queries.UpdateQuizAttemptScoreAndEndTime(ctx, db.UpdateQuizAttemptScoreAndEndTimeParams{
		ID:      attempt.ID,
		Score:   pgtype.Int4{Int32: int32(score), Valid: true},
		EndTime: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	})
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to finalize attempt %s", attempt.ID), err)
		return
	}

	quizTitle := "Unknown Quiz"
	if dbQuiz, qErr := h.DB.Queries.GetQuizByID(ctx, attempt.QuizID); qErr == nil {
		quizTitle = dbQuiz.Title
	} else {
		h.log.Warn("load quiz title for finish notification", "quiz_id", attempt.QuizID, "error", qErr)
	}

	h.log.Info("quiz attempt finished",
		"attempt_id", updated.ID, "quiz_id", updated.QuizID, "user_id", userID, "score", updated.Score.Int32)

	h.logActivity(ctx, userID, db.ActivityActionQuizAttemptFinish,
		db.NullActivityTargetType{ActivityTargetType: db.ActivityTargetTypeQuizAttempt, Valid: true},
		pgtype.UUID{Bytes: updated.ID, Valid: true},
		map[string]interface{}{
			"quiz_id": updated.QuizID.String(),
			"score":   updated.Score.Int32,
		})

	h.sendDiscordNotification(DiscordEmbed{
		Title: "Quiz Attempt Finished",
		Color: 0x9C27B0,
		Fields: []DiscordEmbedField{
			{Name: "Quiz", Value: quizTitle, Inline: true},
			{Name: "Score", Value: fmt.Sprintf("%d", updated.Score.Int32), Inline: true},
			{Name: "By", Value: fmt.Sprintf("%s (%s)", profile.Name, profile.Email)},
		},
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Quiz attempt finished successfully",
		"score":   updated.Score.Int32,
	})
}

// HandleListUserAttempts lists the authenticated user's attempts with quiz
// titles, newest first.
func (h *Handler) HandleListUserAttempts(c *gin.Context) {
	ctx := c.Request.Context()

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempts, err := h.DB.Queries.ListUserAttemptsWithQuizName(ctx, userID)
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to list attempts", err)
		return
	}
	if attempts == nil {
		attempts = []db.ListUserAttemptsWithQuizNameRow{}
	}

	c.JSON(http.StatusOK, attempts)
}
