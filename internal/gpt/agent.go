package gpt

import (
	"context"
	"fmt"
	"strings"

	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/logger"
)

// Agent wraps a model client with the prompt building for every recipe and
// nutrition feature. It is the single entry-point the engine and CLI use.
type Agent struct {
	client domain.ModelClient
	pantry Pantry
	log    *logger.Logger
}

// NewAgent creates an agent backed by the given client.
func NewAgent(client domain.ModelClient, pantry Pantry, log *logger.Logger) *Agent {
	return &Agent{client: client, pantry: pantry, log: log}
}

// Client returns the underlying model client.
func (a *Agent) Client() domain.ModelClient { return a.client }

// ── Generation requests ──────────────────────────────────────────

// ReceiptRequest builds the messages for a photographed receipt.
func (a *Agent) ReceiptRequest(jpeg []byte) []domain.Message {
	return []domain.Message{{
		Role:  domain.RoleUser,
		Text:  fmt.Sprintf(PromptReceipt, a.pantry),
		Image: jpeg,
	}}
}

// IngredientRequest builds the messages for an ingredient list.
func (a *Agent) IngredientRequest(ingredients []string, allergies string) []domain.Message {
	if strings.TrimSpace(allergies) == "" {
		allergies = "none"
	}
	return []domain.Message{{
		Role: domain.RoleUser,
		Text: fmt.Sprintf(PromptIngredients, strings.Join(ingredients, ", "), a.pantry, allergies),
	}}
}

// HealthyRequest builds the messages for three nutritionist recipes.
func (a *Agent) HealthyRequest(preferences string) []domain.Message {
	pref := ""
	if p := strings.TrimSpace(preferences); p != "" {
		pref = "Consider these dietary preferences: " + p
	}
	return []domain.Message{{
		Role: domain.RoleUser,
		Text: fmt.Sprintf(PromptHealthy, pref),
	}}
}

// Generate sends a generation request and returns the raw reply.
func (a *Agent) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	return a.client.Complete(ctx, messages)
}

// ── Nutrition ────────────────────────────────────────────────────

// AnalyzeRecipe asks for a sectioned nutrition report of recipe.
func (a *Agent) AnalyzeRecipe(ctx context.Context, recipe domain.Recipe) (string, error) {
	prompt := fmt.Sprintf(PromptAnalyze,
		recipe.Name,
		strings.Join(recipe.Ingredients, ", "),
		strings.Join(recipe.Instructions, ". "),
	)
	reply, err := a.client.Complete(ctx, []domain.Message{{Role: domain.RoleUser, Text: prompt}})
	if err != nil {
		return "", err
	}
	a.log.Debug("gpt: analysis for %q (%d chars)", recipe.Name, len(reply))
	return reply, nil
}

// AskNutrition answers a nutrition question, optionally about recipe.
func (a *Agent) AskNutrition(ctx context.Context, question string, recipe *domain.Recipe) (string, error) {
	return a.client.Complete(ctx, a.buildMessages(PromptNutritionist, question, recipe))
}

// ── Context building ─────────────────────────────────────────────

// buildMessages assembles the system prompt, an optional recipe-context
// user message, and the actual user query.
func (a *Agent) buildMessages(systemPrompt, userQuery string, recipe *domain.Recipe) []domain.Message {
	msgs := []domain.Message{
		{Role: domain.RoleSystem, Text: systemPrompt},
	}

	if ctxBlock := buildContext(recipe); ctxBlock != "" {
		msgs = append(msgs,
			domain.Message{Role: domain.RoleUser, Text: ctxBlock},
			// Fake an ack so the model treats context as established.
			domain.Message{Role: domain.RoleAssistant, Text: "Got it, I have the recipe."},
		)
	}

	return append(msgs, domain.Message{Role: domain.RoleUser, Text: userQuery})
}

// buildContext serializes a recipe into a plain-text block the model can
// reason over.
func buildContext(recipe *domain.Recipe) string {
	if recipe == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("[Recipe Context]\n")
	fmt.Fprintf(&b, "Recipe: %s\n", recipe.Name)
	fmt.Fprintf(&b, "Duration: %s\n", recipe.Duration)
	fmt.Fprintf(&b, "Difficulty: %s\n", recipe.Difficulty)

	b.WriteString("\nIngredients:\n")
	for _, ing := range recipe.Ingredients {
		fmt.Fprintf(&b, "- %s\n", ing)
	}

	b.WriteString("\nSteps:\n")
	for i, step := range recipe.Instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	if len(recipe.NutritionalInfo) > 0 {
		b.WriteString("\nNutrition:\n")
		for _, k := range []string{"calories", "protein", "carbs", "fat", "fiber"} {
			if v, ok := recipe.NutritionalInfo[k]; ok {
				fmt.Fprintf(&b, "- %s: %s\n", k, v)
			}
		}
	}
	return b.String()
}
