// Package nutrition runs the nutritionist features: recipe analysis with
// best-effort annotation, and free-form nutrition questions.
package nutrition

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/extract"
	"github.com/hammamikhairi/snapcook/internal/gpt"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// Updater persists an annotated recipe. dualstore.Engine satisfies it.
type Updater interface {
	Update(ctx context.Context, recipe domain.Recipe) error
}

// Analysis is the model's report plus whatever structure could be pulled
// out of it.
type Analysis struct {
	Text      string
	Nutrients map[string]string
	Benefits  []string
	// Annotated is set when the recipe was updated with the extracted data.
	Annotated bool
}

// Service answers nutrition requests.
type Service struct {
	agent *gpt.Agent
	store Updater
	log   *logger.Logger
}

// NewService creates a nutrition service. store may be nil, in which case
// analyses are never written back.
func NewService(agent *gpt.Agent, store Updater, log *logger.Logger) *Service {
	return &Service{agent: agent, store: store, log: log}
}

// Analyze asks for a nutrition report of recipe. When the recipe carries no
// nutritional info yet and the report yields some, the recipe is updated
// with it. Annotation never fails the call.
func (s *Service) Analyze(ctx context.Context, recipe domain.Recipe) (Analysis, error) {
	text, err := s.agent.AnalyzeRecipe(ctx, recipe)
	if err != nil {
		return Analysis{}, fmt.Errorf("nutrition: analyze %q: %w", recipe.Name, err)
	}

	nutrients, benefits := extract.Annotate(text)
	out := Analysis{Text: text, Nutrients: nutrients, Benefits: benefits}
	s.log.Debug("nutrition: %q annotated with %d nutrients, %d benefits", recipe.Name, len(nutrients), len(benefits))

	if s.store == nil || len(recipe.NutritionalInfo) > 0 || len(nutrients) == 0 {
		return out, nil
	}

	updated := recipe.Clone()
	updated.NutritionalInfo = nutrients
	if len(updated.HealthBenefits) == 0 {
		updated.HealthBenefits = benefits
	}
	if err := s.store.Update(ctx, updated); err != nil {
		s.log.Warn("nutrition: saving annotations for %q: %v", recipe.Name, err)
		return out, nil
	}
	out.Annotated = true
	return out, nil
}

// Ask answers a nutrition question, optionally about recipe.
func (s *Service) Ask(ctx context.Context, question string, recipe *domain.Recipe) (string, error) {
	reply, err := s.agent.AskNutrition(ctx, question, recipe)
	if err != nil {
		return "", fmt.Errorf("nutrition: ask: %w", err)
	}
	return reply, nil
}
