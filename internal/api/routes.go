package api

import (
	"github.com/gin-gonic/gin"

	"quizforge/internal/api/handlers"
)

// SetupRoutes wires all endpoints onto the router.
func SetupRoutes(router *gin.Engine, handler *handlers.Handler) {
	router.Use(CORSMiddleware())

	// OAuth endpoints live outside /api so the provider redirect stays short.
	router.GET("/login", handler.HandleGoogleLogin)
	router.GET("/auth/google/callback", handler.HandleGoogleCallback)

	api := router.Group("/api")
	{
		api.GET("/auth/status", handler.HandleAuthStatus)

		authorized := api.Group("/")
		authorized.Use(AuthRequired())
		{
			authorized.GET("/user/profile", handler.HandleUserProfile)
			authorized.POST("/logout", handler.HandleLogout)

			authorized.POST("/documents/chapters", handler.HandleChapterPreview)

			authorized.POST("/quizzes/generate", handler.HandleGenerateQuiz)
			authorized.GET("/quizzes/:quizId", handler.HandleGetQuiz)
			authorized.GET("/quizzes", handler.HandleListUserQuizzes)
			authorized.DELETE("/quizzes/:quizId", handler.HandleDeleteQuiz)

			authorized.POST("/quizzes/:quizId/attempts", handler.HandleCreateQuizAttempt)
			authorized.GET("/attempts/:attemptId", handler.HandleGetQuizAttempt)
			authorized.POST("/attempts/:attemptId/answers", handler.HandleSaveAttemptAnswer)
			authorized.POST("/attempts/:attemptId/finish", handler.HandleFinishQuizAttempt)
			authorized.GET("/attempts", handler.HandleListUserAttempts)

			authorized.POST("/feedback", handler.HandleCreateFeedback)
		}
	}
}
