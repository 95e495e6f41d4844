package quizgen

import "errors"

// Error kinds surfaced by quiz generation. Callers match them with
// errors.Is; the HTTP layer maps them to user-facing messages. Content-level
// rejections reuse docparse.ErrInvalidContent so the whole pipeline shares
// one taxonomy.
var (
	// ErrGenerationFailure means the generation loop finished with zero
	// usable questions.
	ErrGenerationFailure = errors.New("could not generate any questions")

	// ErrQualityRejected means the model returned questions, but the batch
	// failed the quality gate (metadata echoed back, degenerate text).
	ErrQualityRejected = errors.New("generated questions failed quality checks")
)
