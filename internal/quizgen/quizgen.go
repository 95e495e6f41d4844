// Package quizgen turns validated document text into multiple-choice
// questions through an LLM provider. Generation is chunk-by-chunk and
// tolerates partial failure: transient API errors skip the chunk, repeated
// ones abort with whatever accumulated, and only unusable content is fatal.
package quizgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"quizforge/internal/docparse"
	"quizforge/internal/llm"
	"quizforge/internal/logger"
)

// consecutiveFailureCeiling aborts the generation loop: this many failed
// chunks in a row means the provider is down or rate-limiting, and hammering
// on will not improve the result.
const consecutiveFailureCeiling = 5

// Question is one generated multiple-choice question. Exactly four distinct
// options; CorrectAnswer is one of them verbatim.
type Question struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Result is the outcome of one generation run. Achieved may be lower than
// Requested when some chunks failed; zero achieved is reported as an error
// instead.
type Result struct {
	Questions []Question `json:"questions"`
	Requested int        `json:"requested"`
	Achieved  int        `json:"achieved"`
}

// Request describes one generation run over already-validated text.
type Request struct {
	Text         string
	NumQuestions int
	Difficulty   Difficulty
}

// Config wires the generator's collaborators.
type Config struct {
	Provider llm.Provider
	Logger   logger.Logger
	// ChunkSize and ChunkOverlap override the chunker defaults.
	ChunkSize    int
	ChunkOverlap int
}

// Generator runs the chunked generation loop.
type Generator struct {
	provider     llm.Provider
	log          logger.Logger
	chunkSize    int
	chunkOverlap int
}

// New creates a Generator.
func New(cfg Config) *Generator {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = docparse.DefaultChunkSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = docparse.DefaultChunkOverlap
	}
	return &Generator{
		provider:     cfg.Provider,
		log:          cfg.Logger,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
	}
}

// questionsPerChunk spreads the requested count across chunks, always asking
// for at least one per chunk.
func questionsPerChunk(requested, chunkCount int) int {
	if chunkCount <= 0 {
		return requested
	}
	per := (requested + chunkCount - 1) / chunkCount
	if per < 1 {
		per = 1
	}
	return per
}

// Generate chunks the text and asks the provider for questions chunk by
// chunk until the requested count accumulates. Transient provider failures
// skip the chunk; consecutiveFailureCeiling of them in a row aborts the
// loop with whatever accumulated. InvalidContent and QualityRejected are
// fatal immediately: they mean the document, not the API, is the problem.
// The result is truncated to exactly the requested count; fewer questions
// than requested is still success.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.NumQuestions < 1 {
		return nil, fmt.Errorf("number of questions must be at least 1, got %d", req.NumQuestions)
	}
	if g.provider == nil {
		return nil, fmt.Errorf("no llm provider configured")
	}

	chunks := docparse.SplitIntoChunks(req.Text, g.chunkSize, g.chunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text to generate from", ErrGenerationFailure)
	}
	perChunk := questionsPerChunk(req.NumQuestions, len(chunks))

	g.log.Info("starting question generation",
		"provider", g.provider.Name(), "chunks", len(chunks),
		"requested", req.NumQuestions, "per_chunk", perChunk,
		"difficulty", string(req.Difficulty))

	var accumulated []Question
	consecutiveFailures := 0

	for _, chunk := range chunks {
		if len(accumulated) >= req.NumQuestions {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := docparse.Validate(chunk.Content); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunk.Ordinal, err)
		}

		prompt := BuildPrompt(chunk.Content, perChunk, req.Difficulty)
		reply, err := g.provider.Complete(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			consecutiveFailures++
			g.log.Warn("chunk generation failed",
				"chunk", chunk.Ordinal, "consecutive_failures", consecutiveFailures, "error", err.Error())
			if consecutiveFailures >= consecutiveFailureCeiling {
				g.log.Error("aborting generation, provider keeps failing",
					"failed_chunk", chunk.Ordinal, "accumulated", len(accumulated))
				break
			}
			continue
		}

		questions, err := ParseQuestions(reply)
		if err != nil && (errors.Is(err, docparse.ErrInvalidContent) || errors.Is(err, ErrQualityRejected)) {
			return nil, err
		}
		if err != nil || len(questions) == 0 {
			consecutiveFailures++
			reason := "no questions survived validation"
			if err != nil {
				reason = err.Error()
			}
			g.log.Warn("chunk yielded no questions",
				"chunk", chunk.Ordinal, "consecutive_failures", consecutiveFailures, "reason", reason)
			if consecutiveFailures >= consecutiveFailureCeiling {
				g.log.Error("aborting generation, no usable replies",
					"failed_chunk", chunk.Ordinal, "accumulated", len(accumulated))
				break
			}
			continue
		}

		consecutiveFailures = 0
		for i := range questions {
			questions[i].ID = uuid.NewString()
		}
		accumulated = append(accumulated, questions...)
		g.log.Debug("chunk generated",
			"chunk", chunk.Ordinal, "questions", len(questions), "total", len(accumulated))
	}

	if len(accumulated) == 0 {
		return nil, fmt.Errorf("%w (%d chunks attempted)", ErrGenerationFailure, len(chunks))
	}
	if len(accumulated) > req.NumQuestions {
		accumulated = accumulated[:req.NumQuestions]
	}

	result := &Result{
		Questions: accumulated,
		Requested: req.NumQuestions,
		Achieved:  len(accumulated),
	}
	g.log.Info("generation finished", "requested", result.Requested, "achieved", result.Achieved)
	return result, nil
}
