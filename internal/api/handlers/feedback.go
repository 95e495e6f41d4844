package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgtype"

	"quizforge/internal/db"
	"quizforge/internal/models"
)

type createFeedbackRequest struct {
	Content string `json:"content" binding:"required"`
	Rating  *int32 `json:"rating"`
}

// HandleCreateFeedback stores user feedback and forwards it to the
// operations webhook.
func (h *Handler) HandleCreateFeedback(c *gin.Context) {
	ctx := c.Request.Context()

	userID, profile, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req createFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "feedback content must not be empty"})
		return
	}
	var rating pgtype.Int4
	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "rating must be between 1 and 5"})
			return
		}
		rating = pgtype.Int4{Int32: *req.Rating, Valid: true}
	}

	feedback, err := h.DB.Queries.CreateFeedback(ctx, db.CreateFeedbackParams{
		UserID:  pgtype.UUID{Bytes: userID, Valid: true},
		Content: req.Content,
		Rating:  rating,
	})
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to store feedback", err)
		return
	}

	h.logActivity(ctx, userID, db.ActivityActionFeedbackCreate,
		db.NullActivityTargetType{ActivityTargetType: db.ActivityTargetTypeFeedback, Valid: true},
		pgtype.UUID{Bytes: feedback.ID, Valid: true}, nil)

	ratingField := "none"
	if rating.Valid {
		ratingField = fmt.Sprintf("%d / 5", rating.Int32)
	}
	h.sendDiscordNotification(DiscordEmbed{
		Title:       "New Feedback",
		Description: req.Content,
		Color:       0xFFC107,
		Fields: []DiscordEmbedField{
			{Name: "Rating", Value: ratingField, Inline: true},
			{Name: "From", Value: fmt.Sprintf("%s (%s)", profile.Name, profile.Email), Inline: true},
		},
	})

	c.JSON(http.StatusCreated, gin.H{"id": feedback.ID.String()})
}
