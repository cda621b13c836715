package voicestage

import (
	"fmt"
	"regexp"
	"strings"
)

// DialogueRecord is one well-formed script line.
type DialogueRecord struct {
	Line      int    // 1-based source line number
	Ordinal   int    // 1-based count of non-blank lines up to this one
	Character string
	Text      string // original dialogue, director notes intact
}

// FormatError flags a non-blank line that does not match "Name: dialogue".
type FormatError struct {
	Line int
	Raw  string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("Line %d (Format Error): '%s'", e.Line, e.Raw)
}

var (
	directorNoteRe = regexp.MustCompile(`\[[^\]]*\]`)
	spaceRunRe     = regexp.MustCompile(`\s+`)
)

// parseScript splits raw script text into dialogue records and format
// errors, both in source order. Blank lines are skipped and consume no
// ordinal; malformed non-blank lines do consume one, so artifact numbering
// stays aligned with what an operator counts in the script. The returned
// int is the number of non-blank lines seen.
func parseScript(text string) ([]DialogueRecord, []FormatError, int) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var records []DialogueRecord
	var formatErrs []FormatError
	ordinal := 0
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		ordinal++
		name, dialogue, found := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		dialogue = strings.TrimSpace(dialogue)
		if !found || name == "" || dialogue == "" {
			formatErrs = append(formatErrs, FormatError{Line: i + 1, Raw: line})
			continue
		}
		records = append(records, DialogueRecord{
			Line:      i + 1,
			Ordinal:   ordinal,
			Character: name,
			Text:      dialogue,
		})
	}
	return records, formatErrs, ordinal
}

// cleanDialogue strips bracketed director notes and collapses whitespace
// runs to a single space. Idempotent; an empty result means the line has no
// speakable text and must not reach the provider.
func cleanDialogue(s string) string {
	s = directorNoteRe.ReplaceAllString(s, "")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
