package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"quizforge/internal/docparse"
	"quizforge/internal/models"
)

// previewRunes is how much chapter text the preview endpoint returns.
const previewRunes = 200

// HandleChapterPreview extracts a document and returns its detected chapters
// so the client can pick a subset before generating. Accepts the same `file`
// or `text` form fields as quiz generation; chapter indices returned here are
// the ones the generate endpoint's `chapters` field refers to.
func (h *Handler) HandleChapterPreview(c *gin.Context) {
	ctx := c.Request.Context()

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.handleErrorAndNotify(c, userID, http.StatusBadRequest, "Failed to parse request form", err)
		return
	}

	text := strings.TrimSpace(c.PostForm("text"))
	fileHeader, fileErr := c.FormFile("file")
	if fileErr != nil {
		fileHeader = nil
	}
	if (fileHeader == nil) == (text == "") {
		h.handleErrorAndNotify(c, userID, http.StatusBadRequest, "Invalid preview source",
			errors.New("provide exactly one of file or text"))
		return
	}

	sourceText := text
	if fileHeader != nil {
		name := filepath.Base(fileHeader.Filename)
		f, err := fileHeader.Open()
		if err != nil {
			h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to open uploaded file", err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.handleErrorAndNotify(c, userID, http.StatusInternalServerError, "Failed to read uploaded file", err)
			return
		}
		sourceText, err = h.Parser.Extract(ctx, docparse.SourceDocument{
			Data:     data,
			Filename: name,
			MimeType: fileHeader.Header.Get("Content-Type"),
		})
		if err != nil {
			h.handleErrorAndNotify(c, userID, statusForError(err), "Failed to extract document text", err)
			return
		}
	}

	vt, err := docparse.Validate(sourceText)
	if err != nil {
		h.handleErrorAndNotify(c, userID, statusForError(err), "Source content failed validation", err)
		return
	}

	chapters := docparse.SegmentChapters(vt.Content)
	previews := make([]models.ChapterPreview, 0, len(chapters))
	for _, ch := range chapters {
		previews = append(previews, models.ChapterPreview{
			Index:     ch.Index,
			Title:     ch.Title,
			CharCount: len([]rune(ch.Content)),
			Preview:   truncateRunes(ch.Content, previewRunes),
		})
	}

	c.JSON(http.StatusOK, gin.H{"chapters": previews})
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
