// Package youtube fetches video captions so transcripts can feed the same
// validation and generation pipeline as parsed documents. YouTube has no
// public transcript API; this scrapes the caption track list out of the
// watch page the way the player does.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"quizforge/internal/logger"
)

var (
	videoIDRe        = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	videoTitleRe     = regexp.MustCompile(`<title>(.+?) - YouTube</title>`)
	transcriptTextRe = regexp.MustCompile(`<text start="([^"]*)" dur="([^"]*)">([^<]*)</text>`)
)

// ErrNoTranscript means the video exists but exposes no caption track, or
// none in the requested language.
var ErrNoTranscript = errors.New("no transcript available for video")

// Client fetches transcripts over plain HTTP.
type Client struct {
	http *http.Client
	log  logger.Logger
}

// New creates a transcript client.
func New(log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

// Transcript returns the full caption text and the video title. lang is an
// ISO 639-1 code; empty picks the first available track.
func (c *Client) Transcript(ctx context.Context, videoURL, lang string) (string, string, error) {
	videoID, err := extractVideoID(videoURL)
	if err != nil {
		return "", "", err
	}

	page, err := c.get(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return "", "", fmt.Errorf("fetch video page: %w", err)
	}

	title := ""
	if m := videoTitleRe.FindSubmatch(page); len(m) > 1 {
		title = html.UnescapeString(string(m[1]))
	}

	tracks, err := captionTracksFromPage(page)
	if err != nil {
		c.log.Warn("no caption tracks found", "video_id", videoID, "error", err)
		return "", title, fmt.Errorf("%w %s", ErrNoTranscript, videoID)
	}

	trackURL := ""
	if lang == "" {
		trackURL = tracks[0].BaseURL
	} else {
		for _, t := range tracks {
			if t.LanguageCode == lang {
				trackURL = t.BaseURL
				break
			}
		}
		if trackURL == "" {
			return "", title, fmt.Errorf("%w %s in language %q", ErrNoTranscript, videoID, lang)
		}
	}

	raw, err := c.get(ctx, trackURL)
	if err != nil {
		return "", title, fmt.Errorf("fetch transcript track: %w", err)
	}

	text := parseTranscriptXML(raw)
	if strings.TrimSpace(text) == "" {
		return "", title, fmt.Errorf("%w %s: track is empty", ErrNoTranscript, videoID)
	}

	c.log.Info("fetched transcript", "video_id", videoID, "chars", len(text))
	return text, title, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// extractVideoID accepts a bare 11-character ID or any of the usual YouTube
// URL shapes.
func extractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 11 && !strings.ContainsAny(raw, "./ ") {
		return raw, nil
	}
	if m := videoIDRe.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("invalid YouTube URL or video ID: %q", raw)
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

// captionTracksFromPage digs the caption track list out of the player
// config JSON embedded in the watch page.
func captionTracksFromPage(page []byte) ([]captionTrack, error) {
	_, after, found := strings.Cut(string(page), `"captions":`)
	if !found {
		return nil, errors.New("captions marker not present in page")
	}
	end := strings.Index(after, `,"videoDetails`)
	if end < 0 {
		return nil, errors.New("captions block is not terminated")
	}

	var captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	}
	if err := json.Unmarshal([]byte(after[:end]), &captions); err != nil {
		return nil, fmt.Errorf("parse captions block: %w", err)
	}

	tracks := captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, errors.New("caption track list is empty")
	}
	return tracks, nil
}

// parseTranscriptXML flattens a timedtext XML document into plain text,
// one caption segment per space.
func parseTranscriptXML(data []byte) string {
	matches := transcriptTextRe.FindAllStringSubmatch(string(data), -1)
	var sb strings.Builder
	for _, m := range matches {
		segment := strings.TrimSpace(html.UnescapeString(m[3]))
		if segment == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(segment)
	}
	return sb.String()
}
