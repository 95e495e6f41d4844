package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"quizforge/internal/db"
	"quizforge/internal/models"
)

func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HandleGoogleLogin starts the OAuth flow. The state token is kept in the
// session and checked again on callback.
func (h *Handler) HandleGoogleLogin(c *gin.Context) {
	state, err := generateStateToken()
	if err != nil {
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError, "Failed to generate OAuth state", err)
		return
	}

	session := sessions.Default(c)
	session.Set(OauthStateSessionKey, state)
	if err := session.Save(); err != nil {
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError, "Failed to save session", err)
		return
	}

	url := h.OauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// HandleGoogleCallback finishes the OAuth flow: state check, code exchange,
// userinfo fetch, user upsert, session write, redirect to the frontend.
func (h *Handler) HandleGoogleCallback(c *gin.Context) {
	session := sessions.Default(c)

	storedState, _ := session.Get(OauthStateSessionKey).(string)
	queryState := c.Query("state")
	if queryState == "" || storedState == "" || storedState != queryState {
		h.log.Warn("oauth state mismatch", "have_session_state", storedState != "")
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid state parameter"})
		return
	}

	ctx := c.Request.Context()
	token, err := h.OauthConfig.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError, "Failed to exchange authorization code", err)
		return
	}
	if !token.Valid() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Retrieved invalid token"})
		return
	}

	client := h.OauthConfig.Client(ctx, token)
	oauth2Service, err := oauth2api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError, "Failed to create OAuth2 service", err)
		return
	}

	userinfo, err := oauth2Service.Userinfo.V2.Me.Get().Do()
	if err != nil {
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError, "Failed to fetch user info", err)
		return
	}
	if userinfo.Email == "" {
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError, "User info missing email",
			errors.New("empty email in Google profile"))
		return
	}

	dbUser, err := h.DB.Queries.GetUserByEmail(ctx, userinfo.Email)
	isNewUser := false
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError, "Failed to look up user", err)
			return
		}
		isNewUser = true
		dbUser, err = h.DB.Queries.CreateUser(ctx, db.CreateUserParams{
			Email:    userinfo.Email,
			Name:     pgtype.Text{String: userinfo.Name, Valid: userinfo.Name != ""},
			GoogleID: pgtype.Text{String: userinfo.Id, Valid: userinfo.Id != ""},
			Picture:  pgtype.Text{String: userinfo.Picture, Valid: userinfo.Picture != ""},
		})
		if err != nil {
			h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError, "Failed to create user", err)
			return
		}
		h.log.Info("new user registered", "user_id", dbUser.ID, "email", dbUser.Email)
	}

	h.logActivity(ctx, dbUser.ID, db.ActivityActionLogin,
		db.NullActivityTargetType{ActivityTargetType: db.ActivityTargetTypeUser, Valid: true},
		pgtype.UUID{Bytes: dbUser.ID, Valid: true},
		map[string]interface{}{"email": dbUser.Email, "signup": isNewUser})

	title := "User Login"
	color := 0x57F287
	if isNewUser {
		title = "New Signup"
		color = 0x5865F2
	}
	h.sendDiscordNotification(DiscordEmbed{
		Title:       title,
		Description: fmt.Sprintf("**%s** signed in.", userinfo.Name),
		Color:       color,
		Fields: []DiscordEmbedField{
			{Name: "Email", Value: userinfo.Email, Inline: true},
		},
	})

	profile := UserProfile{
		DatabaseID:    dbUser.ID,
		GoogleID:      userinfo.Id,
		Email:         userinfo.Email,
		VerifiedEmail: userinfo.VerifiedEmail != nil && *userinfo.VerifiedEmail,
		Name:          userinfo.Name,
		GivenName:     userinfo.GivenName,
		FamilyName:    userinfo.FamilyName,
		Picture:       userinfo.Picture,
		Locale:        userinfo.Locale,
	}

	session.Set(ProfileSessionKey, profile)
	session.Delete(OauthStateSessionKey)
	if err := session.Save(); err != nil {
		h.handleErrorAndNotify(c, dbUser.ID, http.StatusInternalServerError, "Failed to save session after login", err)
		return
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "/"
	}
	c.Redirect(http.StatusTemporaryRedirect, frontendURL)
}

// HandleUserProfile returns the authenticated user's profile.
func (h *Handler) HandleUserProfile(c *gin.Context) {
	_, profile, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}

// HandleLogout clears the session. The profile is read before the clear so
// the activity log records who left.
func (h *Handler) HandleLogout(c *gin.Context) {
	userID := uuid.Nil
	userName := "User"
	userEmail := ""
	if v, exists := c.Get("userProfile"); exists {
		if profile, ok := v.(UserProfile); ok {
			userID = profile.DatabaseID
			userEmail = profile.Email
			if profile.Name != "" {
				userName = profile.Name
			}
		}
	}

	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{MaxAge: -1, Path: "/"})
	if err := session.Save(); err != nil {
		h.log.Error("clear session on logout", "user_id", userID, "error", err)
	}

	if userID != uuid.Nil {
		h.logActivity(c.Request.Context(), userID, db.ActivityActionLogout,
			db.NullActivityTargetType{ActivityTargetType: db.ActivityTargetTypeUser, Valid: true},
			pgtype.UUID{Bytes: userID, Valid: true}, nil)

		h.sendDiscordNotification(DiscordEmbed{
			Title:       "User Logout",
			Description: fmt.Sprintf("**%s** signed out.", userName),
			Color:       0x99AAB5,
			Fields: []DiscordEmbedField{
				{Name: "Email", Value: userEmail, Inline: true},
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// HandleAuthStatus reports whether the session holds an authenticated
// profile. Unauthenticated is a normal answer here, not an error.
func (h *Handler) HandleAuthStatus(c *gin.Context) {
	session := sessions.Default(c)
	profile, ok := session.Get(ProfileSessionKey).(UserProfile)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": profile})
}
