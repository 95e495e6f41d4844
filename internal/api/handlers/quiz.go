package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"quizforge/internal/db"
	"quizforge/internal/docparse"
	"quizforge/internal/models"
	"quizforge/internal/quizgen"
	"quizforge/internal/youtube"
)

const (
	// maxUploadBytes bounds the in-memory part of multipart parsing.
	maxUploadBytes = 64 << 20
	// maxNumQuestions caps one generation request.
	maxNumQuestions     = 50
	defaultNumQuestions = 10
	maxTitleLen         = 150
)

// HandleGenerateQuiz runs the full pipeline for one source document: extract,
// validate, optionally narrow to selected chapters, generate questions and
// persist the quiz in a single transaction. Exactly one of the form fields
// `file`, `text` or `videoUrl` must be provided.
func (h *Handler) HandleGenerateQuiz(c *gin.Context) {
	startTime := time.Now()
	ctx := c.Request.Context()

	userID, profile, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.handleErrorAndNotify(c, userID, http.StatusBadRequest, "Failed to parse request form", err)
		return
	}

	text := strings.TrimSpace(c.PostForm("text"))
	videoURL := strings.TrimSpace(c.PostForm("videoUrl"))
	fileHeader, fileErr := c.FormFile("file")
	if fileErr != nil {
		fileHeader = nil
	}

	provided := 0
	if fileHeader != nil {
		provided++
	}
	if text != "" {
		provided++
	}
	if videoURL != "" {
		provided++
	}
	if provided != 1 {
		h.handleErrorAndNotify(c, userID, http.StatusBadRequest, "Invalid quiz source",
			errors.New("provide exactly one of file, text or videoUrl"))
		return
	}

	numQuestions := defaultNumQuestions
	if raw := strings.TrimSpace(c.PostForm("numQuestions")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxNumQuestions {
			h.handleErrorAndNotify(c, userID, http.StatusBadRequest, "Invalid numQuestions",
				fmt.Errorf("numQuestions must be an integer between 1 and %d", maxNumQuestions))
			return
		}
		numQuestions = n
	}

	difficulty, err := quizgen.ParseDifficulty(c.PostForm("difficulty"))
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusBadRequest, "Invalid difficulty", err)
		return
	}

	// Resolve the source into raw text plus bookkeeping for the files table.
	var (
		sourceText    string
		sourceName    string
		sourceSize    int64
		sourceKind    string
		fallbackTitle string
		fileData      []byte
	)
	switch {
	case fileHeader != nil:
		sourceKind = "file"
		sourceName = filepath.Base(fileHeader.Filename)
		sourceSize = fileHeader.Size

		f, err := fileHeader.Open()
		if err != nil {
			h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
				fmt.Sprintf("Failed to open uploaded file %s", sourceName), err)
			return
		}
		fileData, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
				fmt.Sprintf("Failed to read uploaded file %s", sourceName), err)
			return
		}

		sourceText, err = h.Parser.Extract(ctx, docparse.SourceDocument{
			Data:     fileData,
			Filename: sourceName,
			MimeType: fileHeader.Header.Get("Content-Type"),
		})
		if err != nil {
			h.handleErrorAndNotify(c, userID, statusForError(err),
				fmt.Sprintf("Failed to extract text from %s", sourceName), err)
			return
		}
		fallbackTitle = strings.TrimSuffix(sourceName, filepath.Ext(sourceName))

	case text != "":
		sourceKind = "text"
		sourceName = "pasted-text.txt"
		sourceSize = int64(len(text))
		sourceText = text
		fallbackTitle = firstWords(text, 8)

	default:
		sourceKind = "video"
		transcript, videoTitle, err := h.Youtube.Transcript(ctx, videoURL, "")
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, youtube.ErrNoTranscript) {
				status = http.StatusUnprocessableEntity
			}
			h.handleErrorAndNotify(c, userID, status, "Failed to fetch video transcript", err)
			return
		}
		sourceText = transcript
		sourceSize = int64(len(transcript))
		sourceName = videoTitle
		if sourceName == "" {
			sourceName = "YouTube transcript"
		}
		fallbackTitle = sourceName
	}

	vt, err := docparse.Validate(sourceText)
	if err != nil {
		h.handleErrorAndNotify(c, userID, statusForError(err), "Source content failed validation", err)
		return
	}
	content := vt.Content

	if rawChapters := strings.TrimSpace(c.PostForm("chapters")); rawChapters != "" {
		selected, err := selectChapters(content, rawChapters)
		if err != nil {
			h.handleErrorAndNotify(c, userID, http.StatusBadRequest, "Invalid chapter selection", err)
			return
		}
		svt, err := docparse.Validate(selected)
		if err != nil {
			h.handleErrorAndNotify(c, userID, statusForError(err), "Selected chapters failed validation", err)
			return
		}
		content = svt.Content
	}

	result, err := h.Generator.Generate(ctx, quizgen.Request{
		Text:         content,
		NumQuestions: numQuestions,
		Difficulty:   difficulty,
	})
	if err != nil {
		h.handleErrorAndNotify(c, userID, statusForError(err), "Quiz generation failed", err)
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = fallbackTitle
	}
	if title == "" {
		title = "Untitled Quiz"
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen-3] + "..."
	}

	// Upload the original document before the transaction; the stored URL is
	// written with the files row. Failures only cost the copy.
	var fileURL pgtype.Text
	if sourceKind == "video" {
		fileURL = pgtype.Text{String: videoURL, Valid: true}
	} else if h.R2 != nil && fileHeader != nil {
		documentID := uuid.New()
		publicURL, upErr := h.R2.UploadDocument(ctx, userID, documentID, sourceName, bytes.NewReader(fileData))
		if upErr != nil {
			h.log.Warn("upload source document", "file", sourceName, "error", upErr)
		} else {
			fileURL = pgtype.Text{String: publicURL, Valid: true}
		}
	}

	tx, err := h.DB.Pool.Begin(ctx)
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to begin transaction", err)
		return
	}
	defer tx.Rollback(ctx)

	qtx := h.DB.Queries.WithTx(tx)

	createdQuiz, err := qtx.CreateQuiz(ctx, db.CreateQuizParams{
		CreatorID:          pgtype.UUID{Bytes: userID, Valid: true},
		Title:              title,
		Difficulty:         string(difficulty),
		RequestedQuestions: int32(numQuestions),
	})
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to create quiz record", err)
		return
	}

	for i, q := range result.Questions {
		dbQuestion, err := qtx.CreateQuestion(ctx, db.CreateQuestionParams{
			QuizID:   createdQuiz.ID,
			Question: q.Question,
			Position: int32(i),
		})
		if err != nil {
			h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
				fmt.Sprintf("Failed to store question %d", i), err)
			return
		}
		for _, opt := range q.Options {
			if _, err := qtx.CreateOption(ctx, db.CreateOptionParams{
				QuestionID: dbQuestion.ID,
				Body:       opt,
				IsCorrect:  opt == q.CorrectAnswer,
			}); err != nil {
				h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
					fmt.Sprintf("Failed to store options for question %d", i), err)
				return
			}
		}
	}

	if _, err := qtx.CreateFile(ctx, db.CreateFileParams{
		QuizID:   createdQuiz.ID,
		FileName: sourceName,
		FileSize: sourceSize,
		Url:      fileURL,
	}); err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to record source document", err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to commit quiz transaction", err)
		return
	}

	duration := time.Since(startTime)
	h.log.Info("quiz generated",
		"quiz_id", createdQuiz.ID, "user_id", userID, "source", sourceKind,
		"requested", result.Requested, "achieved", result.Achieved,
		"duration_ms", duration.Milliseconds())

	h.logActivity(ctx, userID, db.ActivityActionQuizCreate,
		db.NullActivityTargetType{ActivityTargetType: db.ActivityTargetTypeQuiz, Valid: true},
		pgtype.UUID{Bytes: createdQuiz.ID, Valid: true},
		map[string]interface{}{
			"title":       createdQuiz.Title,
			"source":      sourceKind,
			"requested":   result.Requested,
			"achieved":    result.Achieved,
			"difficulty":  string(difficulty),
			"duration_ms": duration.Milliseconds(),
		})

	h.sendDiscordNotification(DiscordEmbed{
		Title: "Quiz Created",
		Color: 0x4CAF50,
		Fields: []DiscordEmbedField{
			{Name: "Title", Value: createdQuiz.Title, Inline: true},
			{Name: "Questions", Value: fmt.Sprintf("%d / %d", result.Achieved, result.Requested), Inline: true},
			{Name: "Source", Value: sourceKind, Inline: true},
			{Name: "Time Taken", Value: fmt.Sprintf("%.2fs", duration.Seconds()), Inline: true},
			{Name: "Created By", Value: fmt.Sprintf("%s (%s)", profile.Name, profile.Email)},
			{Name: "Quiz ID", Value: fmt.Sprintf("`%s`", createdQuiz.ID)},
		},
	})

	message := "Quiz generated successfully"
	if result.Achieved < result.Requested {
		message = fmt.Sprintf("Generated %d of %d requested questions", result.Achieved, result.Requested)
	}
	c.JSON(http.StatusCreated, models.GenerateQuizResponse{
		QuizID:    createdQuiz.ID,
		Title:     createdQuiz.Title,
		Requested: result.Requested,
		Achieved:  result.Achieved,
		Message:   message,
	})
}

// selectChapters narrows validated text to the chapters named by a
// comma-separated index list. Indices refer to the segmentation returned by
// the chapter preview endpoint for the same text.
func selectChapters(text, spec string) (string, error) {
	chapters := docparse.SegmentChapters(text)

	var picked []string
	seen := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil {
			return "", fmt.Errorf("chapter index %q is not a number", part)
		}
		if idx < 0 || idx >= len(chapters) {
			return "", fmt.Errorf("chapter index %d out of range, document has %d chapters", idx, len(chapters))
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		picked = append(picked, chapters[idx].Content)
	}
	if len(picked) == 0 {
		return "", errors.New("no chapters selected")
	}
	return strings.Join(picked, "\n\n"), nil
}

// firstWords returns up to n leading words of s, for title fallbacks.
func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// HandleGetQuiz returns one quiz with its questions, options, source files
// and creator info.
func (h *Handler) HandleGetQuiz(c *gin.Context) {
	ctx := c.Request.Context()

	quizID, err := uuid.Parse(c.Param("quizId"))
	if err != nil {
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusBadRequest,
			fmt.Sprintf("Invalid quiz ID %q", c.Param("quizId")), err)
		return
	}

	quizRow, err := h.DB.Queries.GetQuizByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{Error: "quiz not found"})
			return
		}
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load quiz %s", quizID), err)
		return
	}

	dbQuestions, err := h.DB.Queries.ListQuestionsByQuizID(ctx, quizID)
	if err != nil {
		h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load questions for quiz %s", quizID), err)
		return
	}

	questions := make([]models.Question, 0, len(dbQuestions))
	for _, dbQ := range dbQuestions {
		dbOptions, err := h.DB.Queries.ListOptionsByQuestionID(ctx, dbQ.ID)
		if err != nil {
			h.handleErrorAndNotify(c, uuid.Nil, http.StatusInternalServerError,
				fmt.Sprintf("Failed to load options for question %s", dbQ.ID), err)
			return
		}
		options := make([]models.Option, 0, len(dbOptions))
		for _, dbO := range dbOptions {
			options = append(options, models.Option{
				ID:        dbO.ID,
				Text:      dbO.Body,
				IsCorrect: dbO.IsCorrect,
			})
		}
		questions = append(questions, models.Question{
			ID:       dbQ.ID,
			Text:     dbQ.Question,
			Position: dbQ.Position,
			Options:  options,
		})
	}

	dbFiles, err := h.DB.Queries.ListFilesByQuizID(ctx, quizID)
	if err != nil {
		h.log.Warn("load quiz files", "quiz_id", quizID, "error", err)
	}
	files := make([]models.File, 0, len(dbFiles))
	for _, dbF := range dbFiles {
		files = append(files, models.File{
			ID:       dbF.ID,
			FileName: dbF.FileName,
			FileSize: dbF.FileSize,
			URL:      dbF.Url.String,
		})
	}

	detail := models.QuizDetail{
		ID:         quizRow.ID,
		Title:      quizRow.Title,
		Difficulty: quizRow.Difficulty,
		Questions:  questions,
		Files:      files,
		CreatedAt:  quizRow.CreatedAt,
		UpdatedAt:  quizRow.UpdatedAt,
	}
	if quizRow.Description.Valid {
		desc := quizRow.Description.String
		detail.Description = &desc
	}
	if quizRow.CreatorName.Valid {
		name := quizRow.CreatorName.String
		detail.CreatorName = &name
	}
	if quizRow.CreatorPicture.Valid {
		pic := quizRow.CreatorPicture.String
		detail.CreatorPicture = &pic
	}

	c.JSON(http.StatusOK, detail)
}

// HandleListUserQuizzes lists the authenticated user's quizzes, newest first.
func (h *Handler) HandleListUserQuizzes(c *gin.Context) {
	ctx := c.Request.Context()

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	quizzes, err := h.DB.Queries.ListQuizzesByCreator(ctx, pgtype.UUID{Bytes: userID, Valid: true})
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to list quizzes", err)
		return
	}
	if quizzes == nil {
		quizzes = []db.ListQuizzesByCreatorRow{}
	}

	c.JSON(http.StatusOK, quizzes)
}

// HandleDeleteQuiz deletes a quiz after an ownership check. Questions,
// options, files and attempts go with it via ON DELETE CASCADE.
func (h *Handler) HandleDeleteQuiz(c *gin.Context) {
	ctx := c.Request.Context()

	userID, profile, ok := h.currentUser(c)
	if !ok {
		return
	}

	quizID, err := uuid.Parse(c.Param("quizId"))
	if err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusBadRequest,
			fmt.Sprintf("Invalid quiz ID %q", c.Param("quizId")), err)
		return
	}

	dbQuiz, err := h.DB.Queries.GetQuizByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{Error: "quiz not found"})
			return
		}
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load quiz %s for deletion", quizID), err)
		return
	}
	if !dbQuiz.CreatorID.Valid || dbQuiz.CreatorID.Bytes != userID {
		h.handleErrorAndNotify(c, userID, http.StatusForbidden,
			fmt.Sprintf("Refused deletion of quiz %s", quizID),
			errors.New("you do not have permission to delete this quiz"))
		return
	}

	if err := h.DB.Queries.DeleteQuiz(ctx, quizID); err != nil {
		h.handleErrorAndNotify(c, userID, http.StatusInternalServerError,
			fmt.Sprintf("Failed to delete quiz %s", quizID), err)
		return
	}

	h.logActivity(ctx, userID, db.ActivityActionQuizDelete,
		db.NullActivityTargetType{ActivityTargetType: db.ActivityTargetTypeQuiz, Valid: true},
		pgtype.UUID{Bytes: quizID, Valid: true},
		map[string]interface{}{"title": dbQuiz.Title})

	h.sendDiscordNotification(DiscordEmbed{
		Title: "Quiz Deleted",
		Color: 0xF44336,
		Fields: []DiscordEmbedField{
			{Name: "Title", Value: dbQuiz.Title, Inline: true},
			{Name: "Quiz ID", Value: fmt.Sprintf("`%s`", quizID), Inline: true},
			{Name: "Deleted By", Value: fmt.Sprintf("%s (%s)", profile.Name, profile.Email)},
		},
	})

	c.Status(http.StatusNoContent)
}
