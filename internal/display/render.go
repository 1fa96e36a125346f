package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/snapcook/internal/domain"
)

// nutrientOrder is the display order of known nutrition keys.
var nutrientOrder = []string{"calories", "protein", "carbs", "fat", "fiber"}

// RenderRecipe formats one recipe as a card.
func RenderRecipe(r domain.Recipe) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(r.Name))
	b.WriteByte('\n')
	b.WriteString(secondaryStyle.Render(fmt.Sprintf("%s · %s · %s", r.Duration, r.Difficulty, shortID(r.ID))))
	b.WriteString("\n\n")

	b.WriteString(stepStyle.Render("Ingredients"))
	b.WriteByte('\n')
	for _, ing := range r.Ingredients {
		b.WriteString(primaryStyle.Render("  • " + ing))
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(stepStyle.Render("Instructions"))
	b.WriteByte('\n')
	for i, step := range r.Instructions {
		b.WriteString(primaryStyle.Render(fmt.Sprintf("  %d. %s", i+1, step)))
		b.WriteByte('\n')
	}

	if len(r.NutritionalInfo) > 0 {
		b.WriteString("\n")
		b.WriteString(stepStyle.Render("Nutrition"))
		b.WriteByte('\n')
		for _, k := range nutritionKeys(r.NutritionalInfo) {
			b.WriteString(labelStyle.Render("  "+k+": ") + primaryStyle.Render(r.NutritionalInfo[k]))
			b.WriteByte('\n')
		}
	}
	if len(r.HealthBenefits) > 0 {
		b.WriteString("\n")
		b.WriteString(stepStyle.Render("Health benefits"))
		b.WriteByte('\n')
		for _, h := range r.HealthBenefits {
			b.WriteString(chatStyle.Render("  + " + h))
			b.WriteByte('\n')
		}
	}

	return cardStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderRecipeList formats a numbered summary, one recipe per line.
func RenderRecipeList(recipes []domain.Recipe) string {
	if len(recipes) == 0 {
		return secondaryStyle.Render("  No recipes yet. Try `snapcook cook eggs, spinach`.")
	}
	var b strings.Builder
	for i, r := range recipes {
		fmt.Fprintf(&b, "%s %s %s\n",
			labelStyle.Render(fmt.Sprintf("%3d.", i+1)),
			primaryStyle.Render(r.Name),
			secondaryStyle.Render(fmt.Sprintf("(%s, %s) %s", r.Duration, r.Difficulty, shortID(r.ID))),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderProfile formats a profile header.
func RenderProfile(p domain.UserProfile) string {
	rows := [][2]string{
		{"name", p.Name},
		{"user", p.UserID},
		{"phone", orDash(p.Phone())},
		{"recipes", fmt.Sprint(p.RecipeCount)},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Emoji + "  " + p.Name))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-8s", row[0])) + primaryStyle.Render(row[1]))
		b.WriteByte('\n')
	}
	return cardStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Urgent styles an error line.
func Urgent(text string) string { return urgentOutputStyle.Render(text) }

// Hint styles a dimmed line.
func Hint(text string) string { return secondaryStyle.Render(text) }

// Chat styles an assistant line.
func Chat(text string) string { return chatStyle.Render(text) }

func nutritionKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range nutrientOrder {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#52525b")).
	Padding(0, 1)
