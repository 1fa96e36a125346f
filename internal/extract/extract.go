// Package extract turns raw language-model replies into validated recipe
// records.
//
// Models are asked for a bare JSON array but routinely wrap it in prose,
// markdown fences, or single quotes. Extract runs an ordered chain of repair
// stages, cheapest first, and stops at the first stage that decodes. Only
// structure is repaired; missing fields are never inferred.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hammamikhairi/snapcook/internal/domain"
)

// SnippetLimit bounds the raw text kept in a MalformedError.
const SnippetLimit = 120

// ErrMalformed is matched by every MalformedError.
var ErrMalformed = errors.New("malformed model response")

// MalformedError reports a reply that no repair stage could decode.
type MalformedError struct {
	Snippet string
	Cause   error
}

func (e *MalformedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extract: %v: %v (near %q)", ErrMalformed, e.Cause, e.Snippet)
	}
	return fmt.Sprintf("extract: %v (near %q)", ErrMalformed, e.Snippet)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

// Stage identifies the repair stage that produced a successful decode.
type Stage int

const (
	StageDirect Stage = iota
	StageTrim
	StageMarkdown
	StageRepair
)

// String returns the stage's metric label.
func (s Stage) String() string {
	switch s {
	case StageDirect:
		return "direct"
	case StageTrim:
		return "trim"
	case StageMarkdown:
		return "markdown"
	case StageRepair:
		return "repair"
	default:
		return "unknown"
	}
}

// Result is a successful extraction.
type Result struct {
	Recipes []domain.Recipe
	Stage   Stage
}

// Extract decodes raw into recipes owned by owner.
func Extract(raw, owner string) ([]domain.Recipe, error) {
	res, err := Parse(raw, owner)
	if err != nil {
		return nil, err
	}
	return res.Recipes, nil
}

// Parse is Extract that also reports which stage succeeded.
func Parse(raw, owner string) (Result, error) {
	recipes, stage, err := decodeChain(raw)
	if err != nil {
		return Result{}, &MalformedError{Snippet: snippet(raw), Cause: err}
	}
	for i := range recipes {
		recipes[i].ID = uuid.NewString()
		recipes[i].UserID = owner
		recipes[i].Normalize()
	}
	return Result{Recipes: recipes, Stage: stage}, nil
}

// ── Repair stages ────────────────────────────────────────────────

var (
	arrayStart = regexp.MustCompile(`\[\s*\{`)
	arrayEnd   = regexp.MustCompile(`\}\s*\]`)
	fence      = regexp.MustCompile("```[A-Za-z0-9_+-]*")
)

func decodeChain(raw string) ([]domain.Recipe, Stage, error) {
	var firstErr error
	try := func(s string) ([]domain.Recipe, bool) {
		recipes, err := decode(s)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return nil, false
		}
		return recipes, true
	}

	if r, ok := try(raw); ok {
		return r, StageDirect, nil
	}
	if t, found := trimToArray(raw); found {
		if r, ok := try(t); ok {
			return r, StageTrim, nil
		}
	}

	stripped := fence.ReplaceAllString(raw, "")
	if stripped != raw {
		if r, ok := tryTrimmed(try, stripped); ok {
			return r, StageMarkdown, nil
		}
	}

	repaired := repairQuotes(stripped)
	if r, ok := tryTrimmed(try, repaired); ok {
		return r, StageRepair, nil
	}

	if firstErr == nil {
		firstErr = errors.New("no JSON array found")
	}
	return nil, 0, firstErr
}

func tryTrimmed(try func(string) ([]domain.Recipe, bool), s string) ([]domain.Recipe, bool) {
	if r, ok := try(s); ok {
		return r, true
	}
	if t, found := trimToArray(s); found {
		return try(t)
	}
	return nil, false
}

// trimToArray cuts s to the span from the first "[{" to the last "}]",
// allowing whitespace inside either marker.
func trimToArray(s string) (string, bool) {
	start := arrayStart.FindStringIndex(s)
	if start == nil {
		return "", false
	}
	ends := arrayEnd.FindAllStringIndex(s, -1)
	if len(ends) == 0 {
		return "", false
	}
	end := ends[len(ends)-1][1]
	if end <= start[0] {
		return "", false
	}
	return s[start[0]:end], true
}

// repairQuotes swaps single quotes for double quotes and wraps the text in
// brackets when it is not already an array.
func repairQuotes(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "'", `"`))
	if !strings.HasPrefix(s, "[") {
		s = "[" + s
	}
	if !strings.HasSuffix(s, "]") {
		s += "]"
	}
	return s
}

// ── Schema ───────────────────────────────────────────────────────

// wireRecipe mirrors the model schema. Pointers mark required fields.
type wireRecipe struct {
	Name            *string           `json:"name"`
	Duration        *string           `json:"duration"`
	Difficulty      *string           `json:"difficulty"`
	Ingredients     *[]string         `json:"ingredients"`
	Instructions    *[]string         `json:"instructions"`
	NutritionalInfo map[string]string `json:"nutritionalInfo"`
	HealthBenefits  []string          `json:"healthBenefits"`
}

func (w wireRecipe) missing() string {
	switch {
	case w.Name == nil:
		return "name"
	case w.Duration == nil:
		return "duration"
	case w.Difficulty == nil:
		return "difficulty"
	case w.Ingredients == nil:
		return "ingredients"
	case w.Instructions == nil:
		return "instructions"
	}
	return ""
}

func decode(s string) ([]domain.Recipe, error) {
	var wire []wireRecipe
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &wire); err != nil {
		return nil, err
	}
	if len(wire) == 0 {
		return nil, errors.New("empty recipe array")
	}

	out := make([]domain.Recipe, 0, len(wire))
	for i, w := range wire {
		if field := w.missing(); field != "" {
			return nil, fmt.Errorf("recipe %d: missing %q", i, field)
		}
		out = append(out, domain.Recipe{
			Name:            *w.Name,
			Duration:        *w.Duration,
			Difficulty:      *w.Difficulty,
			Ingredients:     *w.Ingredients,
			Instructions:    *w.Instructions,
			NutritionalInfo: w.NutritionalInfo,
			HealthBenefits:  w.HealthBenefits,
		})
	}
	return out, nil
}

func snippet(s string) string {
	if len(s) <= SnippetLimit {
		return s
	}
	cut := SnippetLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
