package display

import (
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/snapcook/internal/domain"
)

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{4 * time.Second, "4s"},
		{61 * time.Second, "1m01s"},
		{12*time.Minute + 30*time.Second, "12m30s"},
	}
	for _, tt := range tests {
		if got := fmtDuration(tt.d); got != tt.want {
			t.Errorf("fmtDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	now := time.Now()
	bar := renderBar(Status{Busy: true, Since: now.Add(-5 * time.Second), Recipes: 3, SyncErr: "offline"}, 80, now)
	for _, want := range []string{"generating 5s", "3 recipes", "sync: offline"} {
		if !strings.Contains(bar, want) {
			t.Errorf("bar %q missing %q", bar, want)
		}
	}
	if idle := renderBar(Status{}, 80, now); !strings.Contains(idle, "ready") {
		t.Errorf("idle bar = %q", idle)
	}
}

func TestRenderRecipe(t *testing.T) {
	r := domain.Recipe{
		ID:              "0123456789abcdef",
		Name:            "Green Bowl",
		Duration:        "15 min",
		Difficulty:      "Easy",
		Ingredients:     []string{"kale", "quinoa"},
		Instructions:    []string{"cook quinoa", "toss"},
		NutritionalInfo: map[string]string{"protein": "12g", "calories": "320", "sodium": "200mg"},
		HealthBenefits:  []string{"high fiber"},
	}
	out := RenderRecipe(r)
	for _, want := range []string{"Green Bowl", "01234567", "kale", "2. toss", "calories: 320", "+ high fiber"} {
		if !strings.Contains(out, want) {
			t.Errorf("card missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "calories") > strings.Index(out, "protein") {
		t.Error("calories should precede protein")
	}
	if strings.Index(out, "protein") > strings.Index(out, "sodium") {
		t.Error("known nutrients should precede the rest")
	}
}

func TestRenderRecipeListEmpty(t *testing.T) {
	if out := RenderRecipeList(nil); !strings.Contains(out, "No recipes yet") {
		t.Errorf("empty list = %q", out)
	}
}

func TestRenderBanner(t *testing.T) {
	out := RenderBanner(200)
	if !strings.Contains(out, "|____/") {
		t.Errorf("banner = %q", out)
	}
}
