package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/snapcook/internal/capture"
	"github.com/hammamikhairi/snapcook/internal/display"
	"github.com/hammamikhairi/snapcook/internal/engine"
	"github.com/hammamikhairi/snapcook/internal/speech"
)

var scanCmd = &cobra.Command{
	Use:     "scan",
	GroupID: "generate",
	Short:   "Generate recipes from a photo of a grocery receipt",
	Long: `Scan a grocery receipt and generate recipes from what was bought.

The photo comes from --file, or from the next image dropped into the
--inbox directory (a scanner or phone sync folder).`,
	Example: `  snapcook scan --file receipt.jpg
  snapcook scan --inbox ~/Scans`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		inbox, _ := cmd.Flags().GetString("inbox")
		if (file == "") == (inbox == "") {
			return errors.New("exactly one of --file or --inbox is required")
		}

		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireModel(); err != nil {
				return err
			}

			var dev capture.Device
			if file != "" {
				dev = capture.NewFileDevice(file)
			} else {
				d := capture.NewInboxDevice(inbox, a.log)
				defer d.Close()
				dev = d
				fmt.Println(display.Hint("Waiting for a receipt in " + inbox + " ..."))
			}

			if err := a.gen.CaptureAndGenerate(ctx, capture.NewBridge(dev, a.log)); err != nil {
				return err
			}
			return awaitGeneration(a)
		})
	},
}

var cookCmd = &cobra.Command{
	Use:     "cook <ingredients>...",
	GroupID: "generate",
	Short:   "Generate recipes from a list of ingredients",
	Example: `  snapcook cook "eggs, spinach, feta"
  snapcook cook chicken rice broccoli --allergies peanuts`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		allergies, _ := cmd.Flags().GetString("allergies")
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			return cookIngredients(ctx, a, strings.Join(args, ","), allergies)
		})
	},
}

var healthyCmd = &cobra.Command{
	Use:     "healthy [preferences]",
	GroupID: "generate",
	Short:   "Ask the nutritionist for three healthy recipes",
	Example: `  snapcook healthy "vegetarian, high protein"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireModel(); err != nil {
				return err
			}
			in := engine.HealthyInput{Preferences: strings.Join(args, " ")}
			if err := a.gen.Start(ctx, in); err != nil {
				return err
			}
			return awaitGeneration(a)
		})
	},
}

var dictateCmd = &cobra.Command{
	Use:     "dictate",
	GroupID: "generate",
	Short:   "Say your ingredients out loud and generate recipes",
	Long: `Record from the microphone until you stop talking, transcribe with a
local Whisper model and generate recipes from what was heard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		allergies, _ := cmd.Flags().GetString("allergies")
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireModel(); err != nil {
				return err
			}
			text, err := dictate(ctx, a)
			if err != nil {
				return err
			}
			return cookIngredients(ctx, a, text, allergies)
		})
	},
}

func init() {
	scanCmd.Flags().String("file", "", "path to a receipt image (JPEG or PNG)")
	scanCmd.Flags().String("inbox", "", "directory to watch for the next receipt image")
	cookCmd.Flags().String("allergies", "", "ingredients to avoid")
	dictateCmd.Flags().String("allergies", "", "ingredients to avoid")

	rootCmd.AddCommand(scanCmd, cookCmd, healthyCmd, dictateCmd)
}

func cookIngredients(ctx context.Context, a *app, list, allergies string) error {
	if err := a.requireModel(); err != nil {
		return err
	}
	if allergies == "" {
		allergies = a.cfg.Allergies
	}
	in := engine.IngredientInput{
		Ingredients: engine.SplitIngredients(list),
		Allergies:   allergies,
	}
	if err := a.gen.Start(ctx, in); err != nil {
		return err
	}
	return awaitGeneration(a)
}

func dictate(ctx context.Context, a *app) (string, error) {
	d := speech.NewDictation(a.cfg.Voice.WhisperBin, a.cfg.Voice.WhisperModel, a.log,
		speech.WithChunk(a.cfg.Voice.Chunk),
	)
	if err := d.Available(); err != nil {
		return "", err
	}
	fmt.Println(display.Hint("Listening... name your ingredients, then pause."))
	text, err := d.Dictate(ctx)
	if err != nil {
		return "", err
	}
	fmt.Println(display.Hint("[voice] " + text))
	return text, nil
}

// awaitGeneration blocks until the in-flight request finishes and prints
// its recipes.
func awaitGeneration(a *app) error {
	start := time.Now()
	a.gen.Wait()

	st := a.gen.State()
	if st.LastError != nil {
		return errors.New(st.Message())
	}
	fmt.Println(display.Hint(fmt.Sprintf("Generated in %s", time.Since(start).Round(100*time.Millisecond))))
	for _, r := range st.LastResult {
		fmt.Println(display.RenderRecipe(r))
	}
	return nil
}
