package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/snapcook/internal/display"
)

var loginCmd = &cobra.Command{
	Use:     "login <email>",
	GroupID: "account",
	Short:   "Sign in and pull your recipes and profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := strings.TrimSpace(args[0])
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if userID == "" {
				return fmt.Errorf("login: email required")
			}
			if err := a.store.SetCurrentUser(ctx, userID); err != nil {
				return err
			}
			a.session = a.store.CurrentSession(ctx)
			local := a.store.LoadLocal(ctx, userID)

			switch err := a.refresh(ctx, userID); {
			case errors.Is(err, errOffline):
				fmt.Println(display.Hint(fmt.Sprintf("Working offline with %d cached recipes", len(local))))
			case err != nil:
				fmt.Println(display.Urgent(fmt.Sprintf("Working offline (%d cached recipes): %v", len(local), err)))
			}
			profile, err := a.store.LoadProfile(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Println(display.RenderProfile(profile))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "account",
	Short:   "Sign out; cached recipes stay on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.store.SetCurrentUser(ctx, ""); err != nil {
				return err
			}
			fmt.Println(display.Hint("Signed out."))
			return nil
		})
	},
}

var profileCmd = &cobra.Command{
	Use:     "profile",
	GroupID: "account",
	Short:   "Show or edit your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			profile, err := a.store.LoadProfile(ctx, a.session.UserID)
			if err != nil {
				return err
			}
			fmt.Println(display.RenderProfile(profile))
			return nil
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change your name, phone number or avatar emoji",
	Example: `  snapcook profile set --name "Sam" --emoji 🍜
  snapcook profile set --phone ""`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if !flags.Changed("name") && !flags.Changed("phone") && !flags.Changed("emoji") {
			return fmt.Errorf("nothing to change: pass --name, --phone or --emoji")
		}
		name, _ := flags.GetString("name")
		phone, _ := flags.GetString("phone")
		emoji, _ := flags.GetString("emoji")

		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			if _, err := a.store.LoadProfile(ctx, a.session.UserID); err != nil {
				return err
			}
			if flags.Changed("name") {
				if err := a.store.UpdateName(ctx, name); err != nil {
					return err
				}
			}
			if flags.Changed("phone") {
				if err := a.store.UpdatePhone(ctx, phone); err != nil {
					return err
				}
			}
			if flags.Changed("emoji") {
				if err := a.store.UpdateEmoji(ctx, emoji); err != nil {
					return err
				}
			}
			if p := a.store.Profile(); p != nil {
				fmt.Println(display.RenderProfile(*p))
			}
			return nil
		})
	},
}

func init() {
	profileSetCmd.Flags().String("name", "", "display name")
	profileSetCmd.Flags().String("phone", "", "phone number (empty clears it)")
	profileSetCmd.Flags().String("emoji", "", "avatar emoji (empty resets the default)")

	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, profileCmd)
}
