package extract

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const toast = "Here is your recipe:\n```json\n[{\"name\":\"Toast\",\"duration\":\"5 min\",\"difficulty\":\"Easy\",\"ingredients\":[\"bread\"],\"instructions\":[\"toast it\"]}]\n```"

func TestExtractStages(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantNames []string
		wantStage Stage
	}{
		{
			name:      "clean array",
			raw:       `[{"name":"Omelette","duration":"10 min","difficulty":"Easy","ingredients":["eggs"],"instructions":["whisk","fry"]}]`,
			wantNames: []string{"Omelette"},
			wantStage: StageDirect,
		},
		{
			name:      "prose around array",
			raw:       `Sure! [ {"name":"A","duration":"1","difficulty":"Easy","ingredients":[],"instructions":[]} ] Enjoy.`,
			wantNames: []string{"A"},
			wantStage: StageTrim,
		},
		{
			name:      "fenced with prose",
			raw:       toast,
			wantNames: []string{"Toast"},
			wantStage: StageTrim,
		},
		{
			name:      "fence only",
			raw:       "```json\n{\"name\":\"B\",\"duration\":\"2\",\"difficulty\":\"Hard\",\"ingredients\":[\"x\"],\"instructions\":[\"y\"]}\n```",
			wantNames: []string{"B"},
			wantStage: StageRepair,
		},
		{
			name:      "single quotes",
			raw:       "[{'name': 'Soup', 'duration': '10', 'difficulty': 'Easy', 'ingredients': ['water'], 'instructions': ['boil']}]",
			wantNames: []string{"Soup"},
			wantStage: StageRepair,
		},
		{
			name:      "bare object",
			raw:       `{"name":"C","duration":"3","difficulty":"Easy","ingredients":["z"],"instructions":["w"]}`,
			wantNames: []string{"C"},
			wantStage: StageRepair,
		},
		{
			name:      "array split across fences",
			raw:       "```json\n[{\"name\":\"E\",\"duration\":\"5\",\"difficulty\":\"Easy\",\"ingredients\":[\"rice\"],\"instructions\":[\"boil\"]},\n```\n```json\n{\"name\":\"F\",\"duration\":\"6\",\"difficulty\":\"Easy\",\"ingredients\":[\"oats\"],\"instructions\":[\"soak\"]}]\n```",
			wantNames: []string{"E", "F"},
			wantStage: StageMarkdown,
		},
		{
			name:      "fence inside the array span",
			raw:       "[{\"name\":\"G\",\"duration\":\"7\",\"difficulty\":\"Easy\",\"ingredients\":[\"kale\"],\"instructions\":[\"chop\"]}\n```\n]",
			wantNames: []string{"G"},
			wantStage: StageMarkdown,
		},
		{
			name:      "fenced array without prose",
			raw:       "```\n[{\"name\":\"D\",\"duration\":\"4\",\"difficulty\":\"Easy\",\"ingredients\":[],\"instructions\":[]}]\n```",
			wantNames: []string{"D"},
			wantStage: StageTrim,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.raw, "user-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Stage != tt.wantStage {
				t.Fatalf("expected stage %s, got %s", tt.wantStage, res.Stage)
			}
			var names []string
			for _, r := range res.Recipes {
				names = append(names, r.Name)
			}
			if !reflect.DeepEqual(names, tt.wantNames) {
				t.Fatalf("expected %v, got %v", tt.wantNames, names)
			}
		})
	}
}

func TestExtractToast(t *testing.T) {
	recipes, err := Extract(toast, "owner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipes) != 1 || recipes[0].Name != "Toast" {
		t.Fatalf("expected one Toast recipe, got %+v", recipes)
	}
}

func TestExtractPreservesListsAndRegeneratesIDs(t *testing.T) {
	raw := `[
		{"id":"model-id","userId":"mallory","name":"One","duration":"5","difficulty":"Easy",
		 "ingredients":["a","b","c"],"instructions":["first","second"],"extra":true},
		{"id":"model-id","userId":"mallory","name":"Two","duration":"5","difficulty":"Easy",
		 "ingredients":["d"],"instructions":["only"]}
	]`
	recipes, err := Extract(raw, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipes) != 2 {
		t.Fatalf("expected 2 recipes, got %d", len(recipes))
	}

	if !reflect.DeepEqual(recipes[0].Ingredients, []string{"a", "b", "c"}) {
		t.Fatalf("ingredients changed: %v", recipes[0].Ingredients)
	}
	if !reflect.DeepEqual(recipes[0].Instructions, []string{"first", "second"}) {
		t.Fatalf("instructions changed: %v", recipes[0].Instructions)
	}

	seen := map[string]bool{}
	for _, r := range recipes {
		if r.ID == "" || r.ID == "model-id" {
			t.Fatalf("model id survived or empty: %q", r.ID)
		}
		if seen[r.ID] {
			t.Fatalf("duplicate id %q", r.ID)
		}
		seen[r.ID] = true
		if r.UserID != "alice" {
			t.Fatalf("expected owner alice, got %q", r.UserID)
		}
		if r.NutritionalInfo == nil || r.HealthBenefits == nil {
			t.Fatal("optional collections should be empty, not nil")
		}
	}
}

func TestExtractOptionalFields(t *testing.T) {
	raw := `[{"name":"Bowl","duration":"15 min","difficulty":"Easy","ingredients":["quinoa"],"instructions":["cook"],
		"nutritionalInfo":{"calories":"400","protein":"20g"},"healthBenefits":["fiber"]}]`
	recipes, err := Extract(raw, "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipes[0].NutritionalInfo["protein"] != "20g" {
		t.Fatalf("nutritional info lost: %v", recipes[0].NutritionalInfo)
	}
	if len(recipes[0].HealthBenefits) != 1 {
		t.Fatalf("health benefits lost: %v", recipes[0].HealthBenefits)
	}
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "not json at all"},
		{"empty", ""},
		{"empty array", "[]"},
		{"missing required field", `[{"name":"X","duration":"1","difficulty":"Easy","ingredients":[]}]`},
		{"wrong type", `[{"name":"X","duration":1,"difficulty":"Easy","ingredients":[],"instructions":[]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.raw, "u")
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedError, got %T", err)
			}
			if me.Snippet != tt.raw {
				t.Fatalf("expected snippet %q, got %q", tt.raw, me.Snippet)
			}
		})
	}
}

func TestMalformedSnippetBounded(t *testing.T) {
	raw := strings.Repeat("é", 500)
	_, err := Extract(raw, "u")
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MalformedError, got %v", err)
	}
	if len(me.Snippet) > SnippetLimit {
		t.Fatalf("snippet too long: %d bytes", len(me.Snippet))
	}
	if !strings.HasPrefix(raw, me.Snippet) {
		t.Fatal("snippet should be a prefix of the input")
	}
	if strings.ContainsRune(me.Snippet, '�') {
		t.Fatal("snippet cut a rune in half")
	}
}
