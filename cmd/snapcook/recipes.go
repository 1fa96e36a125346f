package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/snapcook/internal/display"
	"github.com/hammamikhairi/snapcook/internal/domain"
)

var recipesCmd = &cobra.Command{
	Use:     "recipes",
	GroupID: "collection",
	Short:   "Manage your saved recipes",
}

var recipesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			recipes := a.store.Recipes(a.session.UserID)
			if !full {
				fmt.Println(display.RenderRecipeList(recipes))
				return nil
			}
			for _, r := range recipes {
				fmt.Println(display.RenderRecipe(r))
			}
			return nil
		})
	},
}

var recipesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			r, err := findRecipe(a, args[0])
			if err != nil {
				return err
			}
			fmt.Println(display.RenderRecipe(r))
			return nil
		})
	},
}

var recipesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Replace the local collection with the remote one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if err := a.refresh(ctx, a.session.UserID); err != nil {
				return err
			}
			fmt.Println(display.Hint(fmt.Sprintf("%d recipes synced", len(a.store.Recipes(a.session.UserID)))))
			return nil
		})
	},
}

var recipesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recipe locally and remotely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			r, err := findRecipe(a, args[0])
			if err != nil {
				return err
			}
			if err := a.store.Delete(ctx, r); err != nil {
				return err
			}
			fmt.Println(display.Hint("Deleted " + r.Name))
			return nil
		})
	},
}

var recipesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the collection as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			var out io.Writer = os.Stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer f.Close()
				out = f
			}
			return exportRecipes(out, format, a.store.Recipes(a.session.UserID))
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:     "analyze <id>",
	GroupID: "collection",
	Short:   "Analyze a recipe's nutrition and save the estimates",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireModel(); err != nil {
				return err
			}
			r, err := findRecipe(a, args[0])
			if err != nil {
				return err
			}
			res, err := a.nutrition.Analyze(ctx, r)
			if err != nil {
				return err
			}
			fmt.Println(display.Chat(res.Text))
			if res.Annotated {
				fmt.Println(display.Hint("Nutrition estimates saved to the recipe."))
			}
			return nil
		})
	},
}

var askCmd = &cobra.Command{
	Use:     "ask <question>",
	GroupID: "collection",
	Short:   "Ask the nutritionist a question",
	Example: `  snapcook ask "is this good after a workout?" --recipe 3f2a`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipeID, _ := cmd.Flags().GetString("recipe")
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireModel(); err != nil {
				return err
			}
			var about *domain.Recipe
			if recipeID != "" {
				r, err := findRecipe(a, recipeID)
				if err != nil {
					return err
				}
				about = &r
			}
			answer, err := a.nutrition.Ask(ctx, strings.Join(args, " "), about)
			if err != nil {
				return err
			}
			fmt.Println(display.Chat(answer))
			return nil
		})
	},
}

func init() {
	recipesListCmd.Flags().Bool("full", false, "print every recipe in full")
	recipesExportCmd.Flags().String("format", "json", "output format: json or yaml")
	recipesExportCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	askCmd.Flags().String("recipe", "", "recipe id (or id prefix) to ask about")

	recipesCmd.AddCommand(recipesListCmd, recipesShowCmd, recipesRefreshCmd, recipesDeleteCmd, recipesExportCmd)
	rootCmd.AddCommand(recipesCmd, analyzeCmd, askCmd)
}

// findRecipe resolves a full id or a unique id prefix in the signed-in
// user's collection.
func findRecipe(a *app, id string) (domain.Recipe, error) {
	if err := a.requireSession(); err != nil {
		return domain.Recipe{}, err
	}
	if r, ok := a.store.Find(id); ok {
		return r, nil
	}
	var matches []domain.Recipe
	for _, r := range a.store.Recipes(a.session.UserID) {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return domain.Recipe{}, fmt.Errorf("recipe %q: %w", id, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return domain.Recipe{}, fmt.Errorf("recipe id prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

func exportRecipes(w io.Writer, format string, recipes []domain.Recipe) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recipes)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(recipes); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("export: unknown format %q (want json or yaml)", format)
	}
}
