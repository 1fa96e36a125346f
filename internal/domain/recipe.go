// Package domain defines the core types and interfaces for the recipe engine.
// All other packages depend on domain; domain depends on nothing.
package domain

// Recipe is a generated recipe record owned by a single user.
//
// ID is assigned once by the engine and never changes. Ingredients and
// Instructions may be empty but are never nil once a recipe has passed
// through extraction.
type Recipe struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	Name            string            `json:"name"`
	Duration        string            `json:"duration"`
	Difficulty      string            `json:"difficulty"`
	Ingredients     []string          `json:"ingredients"`
	Instructions    []string          `json:"instructions"`
	NutritionalInfo map[string]string `json:"nutritionalInfo,omitempty"`
	HealthBenefits  []string          `json:"healthBenefits,omitempty"`
}

// Normalize replaces nil collections with empty ones so callers only ever
// branch on length.
func (r *Recipe) Normalize() {
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	if r.NutritionalInfo == nil {
		r.NutritionalInfo = map[string]string{}
	}
	if r.HealthBenefits == nil {
		r.HealthBenefits = []string{}
	}
}

// Clone returns a deep copy of the recipe.
func (r Recipe) Clone() Recipe {
	out := r
	out.Ingredients = append([]string(nil), r.Ingredients...)
	out.Instructions = append([]string(nil), r.Instructions...)
	out.HealthBenefits = append([]string(nil), r.HealthBenefits...)
	if r.NutritionalInfo != nil {
		out.NutritionalInfo = make(map[string]string, len(r.NutritionalInfo))
		for k, v := range r.NutritionalInfo {
			out.NutritionalInfo[k] = v
		}
	}
	out.Normalize()
	return out
}

// RecipeKind identifies what kind of input produced a generation request.
type RecipeKind int

const (
	KindImage RecipeKind = iota
	KindIngredients
	KindHealthy
)

// String returns a human-readable request kind.
func (k RecipeKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindIngredients:
		return "ingredients"
	case KindHealthy:
		return "healthy"
	default:
		return "unknown"
	}
}
