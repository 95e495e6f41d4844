package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/oauth2"

	"quizforge/internal/db"
	"quizforge/internal/docparse"
	"quizforge/internal/logger"
	"quizforge/internal/models"
	"quizforge/internal/quizgen"
	"quizforge/internal/r2"
	"quizforge/internal/youtube"
)

// UserProfile stores information about the authenticated user. DatabaseID is
// our internal UUID and never leaves the server.
type UserProfile struct {
	DatabaseID    uuid.UUID `json:"-"`
	GoogleID      string    `json:"id"`
	Email         string    `json:"email"`
	VerifiedEmail bool      `json:"verified_email"`
	Name          string    `json:"name"`
	GivenName     string    `json:"given_name"`
	FamilyName    string    `json:"family_name"`
	Picture       string    `json:"picture"`
	Locale        string    `json:"locale"`
}

// Session keys, shared with the api middleware.
const (
	OauthStateSessionKey = "oauthstate"
	ProfileSessionKey    = "profile"
)

// Handler carries the dependencies of every API handler.
type Handler struct {
	OauthConfig *oauth2.Config
	DB          *db.DB
	Parser      *docparse.Parser
	Generator   *quizgen.Generator
	Youtube     *youtube.Client
	R2          *r2.Client

	log               logger.Logger
	discordWebhookURL string
	discordClient     *http.Client
}

// Config wires a Handler.
type Config struct {
	OauthConfig *oauth2.Config
	DB          *db.DB
	Parser      *docparse.Parser
	Generator   *quizgen.Generator
	Youtube     *youtube.Client
	R2          *r2.Client
	Logger      logger.Logger
}

// NewHandler creates a Handler. The Discord webhook URL comes from
// DISCORD_WEBHOOK_URL; notifications are skipped when it is unset.
func NewHandler(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		OauthConfig:       cfg.OauthConfig,
		DB:                cfg.DB,
		Parser:            cfg.Parser,
		Generator:         cfg.Generator,
		Youtube:           cfg.Youtube,
		R2:                cfg.R2,
		log:               log,
		discordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		discordClient:     &http.Client{Timeout: 5 * time.Second},
	}
}

// DiscordEmbedFooter, DiscordEmbedAuthor and DiscordEmbedField follow the
// Discord webhook embed schema.
type DiscordEmbedFooter struct {
	Text    string `json:"text,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type DiscordEmbedAuthor struct {
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Author      *DiscordEmbedAuthor `json:"author,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
}

type webhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

// sendDiscordNotification posts an embed to the operations webhook. It runs
// in a goroutine so the request is never blocked on Discord.
func (h *Handler) sendDiscordNotification(embed DiscordEmbed) {
	if h.discordWebhookURL == "" {
		return
	}
	go func() {
		if embed.Timestamp == "" {
			embed.Timestamp = time.Now().Format(time.RFC3339)
		}
		payload := webhookPayload{
			Username: "QuizForge Notifier",
			Embeds:   []DiscordEmbed{embed},
		}
		body, err := json.Marshal(payload)
		if err != nil {
			h.log.Error("marshal discord payload", "error", err)
			return
		}
		req, err := http.NewRequest(http.MethodPost, h.discordWebhookURL, bytes.NewReader(body))
		if err != nil {
			h.log.Error("build discord request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.discordClient.Do(req)
		if err != nil {
			h.log.Error("send discord notification", "error", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			h.log.Error("discord notification rejected", "status", resp.StatusCode, "body", string(respBody))
		}
	}()
}

// logActivity writes a best-effort audit entry. Failures are logged and
// never block the request.
func (h *Handler) logActivity(ctx context.Context, userID uuid.UUID, action db.ActivityAction, targetType db.NullActivityTargetType, targetID pgtype.UUID, details map[string]interface{}) {
	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			h.log.Error("marshal activity details", "action", action, "error", err)
			detailsJSON = nil
		}
	}

	_, err := h.DB.Queries.CreateActivityLog(ctx, db.CreateActivityLogParams{
		UserID:     pgtype.UUID{Bytes: userID, Valid: userID != uuid.Nil},
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    detailsJSON,
	})
	if err != nil {
		h.log.Error("write activity log", "action", action, "user_id", userID, "error", err)
	}
}

// statusForError maps pipeline error kinds onto HTTP status codes. Anything
// unrecognized is a plain internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, docparse.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, docparse.ErrParseFailure),
		errors.Is(err, docparse.ErrInvalidContent),
		errors.Is(err, quizgen.ErrQualityRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quizgen.ErrGenerationFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleErrorAndNotify logs the error, records it in the activity log,
// notifies the operations webhook and aborts the request with a JSON body.
func (h *Handler) handleErrorAndNotify(c *gin.Context, userID uuid.UUID, statusCode int, errorContext string, err error) {
	h.log.Error("request failed",
		"context", errorContext, "error", err, "user_id", userID,
		"path", c.Request.URL.Path, "status", statusCode)

	h.logActivity(c.Request.Context(), userID, db.ActivityActionError,
		db.NullActivityTargetType{}, pgtype.UUID{},
		map[string]interface{}{
			"error_context": errorContext,
			"error_message": err.Error(),
			"request_path":  c.Request.URL.Path,
			"http_status":   statusCode,
		})

	embed := DiscordEmbed{
		Title:       fmt.Sprintf("API Error: %s", errorContext),
		Description: fmt.Sprintf("```%s```", err.Error()),
		Color:       0xFF0000,
	}
	if userID != uuid.Nil {
		embed.Fields = append(embed.Fields, DiscordEmbedField{Name: "User ID", Value: userID.String(), Inline: true})
	}
	embed.Fields = append(embed.Fields,
		DiscordEmbedField{Name: "HTTP Status", Value: fmt.Sprintf("%d", statusCode), Inline: true},
		DiscordEmbedField{Name: "Path", Value: c.Request.URL.Path},
	)
	h.sendDiscordNotification(embed)

	c.AbortWithStatusJSON(statusCode, models.ErrorResponse{Error: fmt.Sprintf("%s: %v", errorContext, err)})
}

// currentUser pulls the authenticated user out of the gin context. When it
// returns false the request has already been aborted.
func (h *Handler) currentUser(c *gin.Context) (uuid.UUID, UserProfile, bool) {
	v, exists := c.Get("userID")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user not authenticated"})
		return uuid.Nil, UserProfile{}, false
	}
	userID, ok := v.(uuid.UUID)
	if !ok {
		h.log.Error("userID in context has wrong type", "type", fmt.Sprintf("%T", v))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "invalid user identity in session"})
		return uuid.Nil, UserProfile{}, false
	}

	var profile UserProfile
	if pv, exists := c.Get("userProfile"); exists {
		profile, _ = pv.(UserProfile)
	}
	if profile.Name == "" {
		profile.Name = "User"
	}
	return userID, profile, true
}
