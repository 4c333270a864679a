/*
classifier.go - Activity code grammar and classification

PURPOSE:
  Parses the opaque activity code carried by every budget line into its
  structured parts. The section (and optional sub-section) drive all
  downstream semantics: flow vs stock accumulation, rollup placement, and
  statement assembly.

CODE GRAMMAR:
  CODE       := PROJECT "_" ... "_" MARKER "_" FACILITY... "_" SECTION ["_" SUBSECTION] "_" SEQUENCE
  MARKER     := "EXEC"               (fixed module marker)
  FACILITY   := one or more tokens   (e.g. "HC", "DH", "BCC_SITE")
  SECTION    := single letter A-G    (first single-letter token after the marker)
  SUBSECTION := SECTION_LETTER "-" 2 digits   (e.g. "G-01")
  SEQUENCE   := bare integer

  Examples:
    HIV_EXEC_HC_A_1        project HIV, health center, section A, item 1
    MAL_EXEC_DH_G_G-01_2   project MAL, district hospital, section G,
                           sub-section G-01, item 2

  A bare numeric token after the section is the item sequence number and
  must NOT be mistaken for a sub-section; only LETTER-NN qualifies.

FAILURE MODE:
  Codes without the marker or without a section letter are unclassifiable.
  The caller keeps such activities on the entry but excludes them from
  rollups; classification failure is never fatal.

SEE ALSO:
  - cumulative.go: Uses the classification to pick flow/stock rules
  - rollup.go: Places activities by section/sub-section
*/
package execution

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// codeMarker is the fixed token separating the project prefix from the
// facility/section suffix in every activity code.
const codeMarker = "EXEC"

var subSectionPattern = regexp.MustCompile(`^[A-G]-\d{2}$`)

// ParsedCode is the structured form of an activity code, validated once at
// ingestion instead of re-derived heuristically at every use site.
type ParsedCode struct {
	Project      string
	Module       string
	FacilityType string
	Section      Section
	SubSection   string // "" when the code has no sub-section
	Sequence     int    // 0 when the code has no trailing sequence number
}

// ParseCode parses code against the documented grammar. It is a pure
// function with no dependency on the activity catalog.
func ParseCode(code string) (ParsedCode, error) {
	tokens := strings.Split(code, "_")

	marker := -1
	for i, tok := range tokens {
		if strings.EqualFold(tok, codeMarker) {
			marker = i
			break
		}
	}
	if marker < 0 {
		return ParsedCode{}, &ClassificationError{Code: code, Reason: "missing marker token"}
	}

	// First single-letter A-G token after the marker is the section.
	sectionIdx := -1
	for i := marker + 1; i < len(tokens); i++ {
		tok := strings.ToUpper(tokens[i])
		if len(tok) == 1 && tok >= "A" && tok <= "G" {
			sectionIdx = i
			break
		}
	}
	if sectionIdx < 0 {
		return ParsedCode{}, &ClassificationError{Code: code, Reason: "no section token"}
	}

	parsed := ParsedCode{
		Project:      strings.Join(tokens[:marker], "_"),
		Module:       strings.ToUpper(tokens[marker]),
		FacilityType: strings.Join(tokens[marker+1:sectionIdx], "_"),
		Section:      Section(strings.ToUpper(tokens[sectionIdx])),
	}

	// The token after the section is either a sub-section (LETTER-NN) or a
	// bare sequence number. Never both in the same position.
	rest := tokens[sectionIdx+1:]
	if len(rest) > 0 && subSectionPattern.MatchString(strings.ToUpper(rest[0])) {
		parsed.SubSection = strings.ToUpper(rest[0])
		rest = rest[1:]
	}
	if len(rest) > 0 {
		if seq, err := strconv.Atoi(rest[0]); err == nil {
			parsed.Sequence = seq
		}
	}

	return parsed, nil
}

// Classify derives the (section, sub-section) pair for an activity code.
// Unclassifiable codes return (SectionUnclassified, "") and a
// ClassificationError; callers treat this as non-fatal.
func Classify(code string) (Section, string, error) {
	parsed, err := ParseCode(code)
	if err != nil {
		return SectionUnclassified, "", err
	}
	return parsed.Section, parsed.SubSection, nil
}

// ClassificationError describes why a code could not be parsed.
type ClassificationError struct {
	Code   string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unclassifiable activity code %q: %s", e.Code, e.Reason)
}

func (e *ClassificationError) Unwrap() error {
	return ErrUnclassifiableCode
}
