package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCommand(o *options) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
		Long:  `Manage the tokens and profiles syncctl uses to reach a server.`,
	}
	authCmd.AddCommand(
		newLoginCommand(o),
		newLogoutCommand(o),
		newStatusCommand(o),
		newProfileCommand(o),
	)
	return authCmd
}

// newLoginCommand stores a profile. With --secret and --as it mints a token
// itself; otherwise --token must carry one issued by the server operator.
func newLoginCommand(o *options) *cobra.Command {
	var profile Profile
	var as string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a server profile",
		Long: `Save a profile holding the server URL and either a bearer token or the
server's JWT secret. A profile with a secret can act as any user via --user.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile.ServerURL = firstNonEmpty(o.v.GetString("server"), defaultServerURL)
			if as != "" {
				if profile.Secret == "" {
					return fmt.Errorf("--as needs --secret")
				}
				token, err := mintToken(profile.Secret, as)
				if err != nil {
					return err
				}
				profile.Token = token
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if profile.Token != "" {
				me, err := NewAPIClient(profile.ServerURL, profile.Token).Me(ctx)
				if err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				Success(cmd.OutOrStdout(), "Authenticated as %s", me.ID)
			}

			file, err := o.configFile()
			if err != nil {
				return err
			}
			if err := file.AddProfile(profile); err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}
			Success(cmd.OutOrStdout(), "Profile '%s' saved", profile.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile.Token, "token", "t", "", "Bearer token")
	cmd.Flags().StringVar(&profile.Secret, "secret", "", "Server JWT secret")
	cmd.Flags().StringVar(&profile.ProjectID, "project", "", "Default project id")
	cmd.Flags().StringVar(&profile.Name, "name", "default", "Profile name")
	cmd.Flags().StringVar(&as, "as", "", "Mint and store a token for this user id")
	return cmd
}

func newLogoutCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout [profile]",
		Short: "Remove a profile",
		Long: `Remove the named profile. Without an argument the default profile is
removed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := o.configFile()
			if err != nil {
				return err
			}
			name := ""
			if len(args) > 0 {
				name = args[0]
			} else {
				config, err := file.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				name = config.DefaultProfile
			}
			if name == "" {
				return fmt.Errorf("no profile specified and no default profile set")
			}
			if err := file.RemoveProfile(name); err != nil {
				return fmt.Errorf("failed to remove profile: %w", err)
			}
			Success(cmd.OutOrStdout(), "Profile '%s' removed", name)
			return nil
		},
	}
}

func newStatusCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication and server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, profile, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			health, healthErr := client.Health(ctx)
			me, err := client.Me(ctx)
			if err != nil {
				return fmt.Errorf("authentication check failed: %w", err)
			}

			status := map[string]interface{}{
				"server":  client.BaseURL,
				"profile": profile.Name,
				"user_id": me.ID,
			}
			if health != nil {
				status["health"] = health["status"]
			}
			if healthErr != nil {
				status["health_error"] = healthErr.Error()
			}
			return o.printer(cmd).Object(status)
		},
	}
}

func newProfileCommand(o *options) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List all profiles",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := o.configFile()
			if err != nil {
				return err
			}
			config, err := file.Load()
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}
			return o.printer(cmd).Profiles(config)
		},
	}

	useCmd := &cobra.Command{
		Use:   "use [profile]",
		Short: "Set the default profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := o.configFile()
			if err != nil {
				return err
			}
			if err := file.UseProfile(args[0]); err != nil {
				return err
			}
			Success(cmd.OutOrStdout(), "Default profile set to '%s'", args[0])
			return nil
		},
	}

	profileCmd.AddCommand(listCmd, useCmd)
	return profileCmd
}
