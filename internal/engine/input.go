package engine

import (
	"strings"

	"github.com/hammamikhairi/snapcook/internal/capture"
	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/gpt"
)

// Input is one generation request payload.
type Input interface {
	Kind() domain.RecipeKind
	validate() error
	messages(a *gpt.Agent) []domain.Message
}

// ImageInput asks for recipes built from a photographed receipt.
type ImageInput struct {
	Image capture.Image
}

func (ImageInput) Kind() domain.RecipeKind { return domain.KindImage }

func (in ImageInput) validate() error {
	if len(in.Image.JPEG) == 0 {
		return domain.ErrEmptyInput
	}
	return nil
}

func (in ImageInput) messages(a *gpt.Agent) []domain.Message {
	return a.ReceiptRequest(in.Image.JPEG)
}

// IngredientInput asks for recipes from a typed or dictated list.
type IngredientInput struct {
	Ingredients []string
	Allergies   string
}

func (IngredientInput) Kind() domain.RecipeKind { return domain.KindIngredients }

func (in IngredientInput) validate() error {
	if len(in.cleaned()) == 0 {
		return domain.ErrEmptyInput
	}
	return nil
}

func (in IngredientInput) messages(a *gpt.Agent) []domain.Message {
	return a.IngredientRequest(in.cleaned(), in.Allergies)
}

func (in IngredientInput) cleaned() []string {
	out := make([]string, 0, len(in.Ingredients))
	for _, s := range in.Ingredients {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitIngredients turns "eggs, milk\nflour" into a list.
func SplitIngredients(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	return IngredientInput{Ingredients: fields}.cleaned()
}

// HealthyInput asks for healthy recipes with nutritional details.
// Preferences may be empty.
type HealthyInput struct {
	Preferences string
}

func (HealthyInput) Kind() domain.RecipeKind { return domain.KindHealthy }

func (HealthyInput) validate() error { return nil }

func (in HealthyInput) messages(a *gpt.Agent) []domain.Message {
	return a.HealthyRequest(strings.TrimSpace(in.Preferences))
}
