package docparse

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidate_AcceptsRealText(t *testing.T) {
	text := "The cell is the basic structural and functional unit of all known organisms. " +
		"Every cell is enclosed by a plasma membrane that regulates what enters and leaves. " +
		"Inside, organelles such as mitochondria and ribosomes carry out specialised tasks."

	res, err := Validate(text)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Content != text {
		t.Errorf("content was altered:\n%q", res.Content)
	}
	if res.Length != len(res.Content) {
		t.Errorf("Length = %d, want %d", res.Length, len(res.Content))
	}
	if res.Flags.Sentences < 2 {
		t.Errorf("Sentences = %d, want >= 2", res.Flags.Sentences)
	}
	if res.Flags.CleanedMetadata {
		t.Error("CleanedMetadata = true for clean input")
	}
}

func TestValidate_TooShort(t *testing.T) {
	_, err := Validate("Too short to quiz on.")
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("want ErrInvalidContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "too short") {
		t.Errorf("error = %q, want a too-short reason", err)
	}
}

func TestValidate_CleansMetadataLines(t *testing.T) {
	// WHAT: Metadata-heavy text triggers the cleaning pass and survives it.
	// WHY: Broken extractions often prepend PDF plumbing to real prose.
	text := "Producer Adobe Acrobat Distiller\n" +
		"Creator Microsoft PowerPoint PDF\n" +
		"CreationDate ModDate Adobe Acrobat\n" +
		"Photosynthesis converts light energy into chemical energy stored in glucose molecules. " +
		"Plants absorb carbon dioxide through stomata during this continuous process."

	res, err := Validate(text)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.Flags.CleanedMetadata {
		t.Error("CleanedMetadata = false, want true")
	}
	if strings.Contains(res.Content, "Producer") || strings.Contains(res.Content, "CreationDate") {
		t.Errorf("metadata lines survived cleaning:\n%q", res.Content)
	}
	if !strings.Contains(res.Content, "Photosynthesis") {
		t.Errorf("prose was lost in cleaning:\n%q", res.Content)
	}
	if res.Flags.MetadataRatio != 0 {
		t.Errorf("MetadataRatio after cleaning = %f, want 0", res.Flags.MetadataRatio)
	}
}

func TestValidate_RejectsMetadataOnly(t *testing.T) {
	// WHAT: Text that is nothing but file plumbing is rejected.
	// WHY: Cleaning must not turn a junk document into an empty quiz source.
	text := "Producer Adobe Acrobat Distiller Ghostscript converter\n" +
		"Creator Microsoft PowerPoint export with Adobe Acrobat\n" +
		"CreationDate ModDate metadata stream endstream xref obj endobj"

	_, err := Validate(text)
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("want ErrInvalidContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "metadata") {
		t.Errorf("error = %q, want a metadata reason", err)
	}
}

func TestValidate_ImageBasedMarkers(t *testing.T) {
	// WHAT: Structural PDF markers with no readable sentences mean a scan.
	// WHY: A scanned document's "text layer" is just file structure.
	text := "%PDF-1.4\n/Type /Filter\nbinary image payload with no readable prose " +
		"only marker noise and padding words repeated here for length until " +
		"the minimum floor is comfortably exceeded by this fixture"

	_, err := Validate(text)
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("want ErrInvalidContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "image-based") {
		t.Errorf("error = %q, want an image-based reason", err)
	}
}

func TestValidate_GibberishSpecialChars(t *testing.T) {
	text := strings.Repeat("x#^ ~| ", 40)
	_, err := Validate(text)
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("want ErrInvalidContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "special characters") {
		t.Errorf("error = %q, want a special-character reason", err)
	}
}

func TestValidate_GibberishUnprintableRuns(t *testing.T) {
	text := "The laboratory manual describes standard procedures for each experiment " +
		"in the course sequence [[[[{{{{]]]] and further notes follow after the noise."
	_, err := Validate(text)
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("want ErrInvalidContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "unprintable") {
		t.Errorf("error = %q, want an unprintable-run reason", err)
	}
}

func TestValidate_GibberishRepeatedRun(t *testing.T) {
	text := "The laboratory manual describes standard procedures. " +
		strings.Repeat("z", 12) +
		" More descriptive material follows with additional scientific vocabulary terms."
	_, err := Validate(text)
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("want ErrInvalidContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "repeated") {
		t.Errorf("error = %q, want a repeated-character reason", err)
	}
}

func TestValidate_InsufficientSubstance(t *testing.T) {
	// WHAT: Long text of tiny tokens with no sentences is rejected.
	// WHY: Length alone does not make content quizzable.
	text := strings.Repeat("ab cd ef gh ij kl mn op qr st uv wx yz ", 3)
	_, err := Validate(text)
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("want ErrInvalidContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "substantial") {
		t.Errorf("error = %q, want a substance reason", err)
	}
}

func TestValidate_TwoSentencesSuffice(t *testing.T) {
	// Two real sentences clear the substance floor even when the word
	// counts alone would not.
	text := "The mitochondria supplies chemical energy to every living cell. " +
		"Ribosomes assemble new proteins from amino acid chains."
	res, err := Validate(text)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Flags.Sentences != 2 {
		t.Errorf("Sentences = %d, want 2", res.Flags.Sentences)
	}
}

func TestMetadataTokenRatio(t *testing.T) {
	ratio := metadataTokenRatio("Producer Adobe normal words here")
	if math.Abs(ratio-0.4) > 1e-9 {
		t.Errorf("ratio = %f, want 0.4", ratio)
	}
	if r := metadataTokenRatio(""); r != 0 {
		t.Errorf("ratio of empty = %f, want 0", r)
	}
}

func TestPrintableRatio_Garbage(t *testing.T) {
	// PUA glyphs and control characters drag the ratio down.
	garbage := "abcdefghi\x01\x02\x03\x04\x05"
	if ratio := printableRatio(garbage); ratio >= 0.85 {
		t.Errorf("printable ratio = %f, want < 0.85", ratio)
	}
	if ratio := printableRatio("A normal sentence with standard characters."); ratio < 0.95 {
		t.Errorf("printable ratio = %f, want > 0.95", ratio)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	in := "keep this\x01 text� intact\n"
	got := sanitizeUTF8(in)
	if got != "keep this text intact\n" {
		t.Errorf("sanitizeUTF8 = %q", got)
	}
	clean := "already clean text\n"
	if got := sanitizeUTF8(clean); got != clean {
		t.Errorf("clean input was altered: %q", got)
	}
}

func TestStripMetadataParagraphs(t *testing.T) {
	text := "Photosynthesis converts light energy into chemical energy inside chloroplasts.\n\n" +
		"Producer Adobe PDF Creator Acrobat Distiller metadata\n\n" +
		"The light reactions produce ATP and NADPH for the Calvin cycle."

	got := StripMetadataParagraphs(text)
	if strings.Contains(got, "Distiller") {
		t.Errorf("metadata paragraph survived:\n%q", got)
	}
	if !strings.Contains(got, "Photosynthesis converts") || !strings.Contains(got, "Calvin cycle") {
		t.Errorf("prose paragraphs were dropped:\n%q", got)
	}
}

func TestHasMetadataVocabulary(t *testing.T) {
	if !HasMetadataVocabulary("The Producer field names Adobe") {
		t.Error("want true for metadata tokens")
	}
	if !HasMetadataVocabulary("standard (PDF) export") {
		t.Error("want true for a bracketed metadata token")
	}
	if HasMetadataVocabulary("Where do light reactions take place?") {
		t.Error("want false for plain prose")
	}
}
