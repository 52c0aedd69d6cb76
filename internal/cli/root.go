// Package cli implements syncctl, a terminal client for the projectsync API.
// Reads print one snapshot; watch commands follow a live stream until
// interrupted.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/projectsync/internal/auth"
)

const (
	applicationName   = "syncctl"
	version           = "0.1.0"
	defaultServerURL  = "http://localhost:8080"
	mintedTokenTTL    = time.Hour
	mintedEmailDomain = "syncctl.local"
)

// options carries global flag values and the per-invocation viper instance.
type options struct {
	cfgFile      string
	outputFormat string
	profileName  string
	user         string
	verbose      bool

	v *viper.Viper
}

// NewRootCommand builds the syncctl command tree.
func NewRootCommand() *cobra.Command {
	o := &options{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   applicationName,
		Short: "projectsync CLI - watch tasks, notifications and chats from the terminal",
		Long: `syncctl is a command-line client for a projectsync server.

List commands print the current state once. Watch commands keep a websocket
open and print every update until interrupted.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (default is $HOME/"+defaultConfigName+")")
	flags.StringVarP(&o.outputFormat, "output", "o", formatTable, "output format (table, json, yaml)")
	flags.StringVar(&o.profileName, "profile", "", "profile to use (default is the configured default)")
	flags.StringVar(&o.user, "user", "", "act as this user id, minting a token with the profile's JWT secret")
	flags.String("server", "", "server URL (overrides the profile)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")

	_ = o.v.BindPFlag("server", flags.Lookup("server"))
	_ = o.v.BindPFlag("output", flags.Lookup("output"))

	rootCmd.AddCommand(
		newAuthCommand(o),
		newTasksCommand(o),
		newNotificationsCommand(o),
		newChatCommand(o),
		newProjectsCommand(o),
	)
	return rootCmd
}

// ExecuteContext runs syncctl with os.Args. Watch commands stop when ctx is
// cancelled.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// initConfig binds SYNCCTL_* environment variables and reads the config
// file if present.
func (o *options) initConfig(cmd *cobra.Command) error {
	o.v.SetEnvPrefix("SYNCCTL")
	o.v.AutomaticEnv()

	path, err := o.configPath()
	if err != nil {
		return err
	}
	o.v.SetConfigFile(path)
	o.v.SetConfigType("yaml")
	if err := o.v.ReadInConfig(); err == nil && o.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", o.v.ConfigFileUsed())
	}

	o.outputFormat = o.v.GetString("output")
	return nil
}

func (o *options) configPath() (string, error) {
	return resolveConfigPath(o.cfgFile)
}

func (o *options) configFile() (configFile, error) {
	path, err := o.configPath()
	if err != nil {
		return configFile{}, err
	}
	return configFile{path: path}, nil
}

// profile returns the selected profile. A missing profile is not an error
// when the server and token come from flags or the environment.
func (o *options) profile() (*Profile, error) {
	file, err := o.configFile()
	if err != nil {
		return nil, err
	}
	profile, err := file.Profile(o.profileName)
	if err != nil {
		if o.profileName != "" {
			return nil, err
		}
		return &Profile{}, nil
	}
	return profile, nil
}

// client resolves server and token from, in order: flags, SYNCCTL_SERVER /
// SYNCCTL_TOKEN / SYNCCTL_JWT_SECRET, and the profile.
func (o *options) client() (*APIClient, *Profile, error) {
	profile, err := o.profile()
	if err != nil {
		return nil, nil, err
	}

	server := firstNonEmpty(o.v.GetString("server"), profile.ServerURL, defaultServerURL)
	token := firstNonEmpty(o.v.GetString("token"), profile.Token)

	if o.user != "" {
		secret := firstNonEmpty(o.v.GetString("jwt_secret"), profile.Secret)
		if secret == "" {
			return nil, nil, fmt.Errorf("--user needs a JWT secret (profile jwt_secret or SYNCCTL_JWT_SECRET)")
		}
		token, err = mintToken(secret, o.user)
		if err != nil {
			return nil, nil, err
		}
	}
	if token == "" {
		return nil, nil, fmt.Errorf("not authenticated: run '%s auth login' or pass --user", applicationName)
	}
	return NewAPIClient(server, token), profile, nil
}

// mintToken signs a token for userID. The server bootstraps a profile on
// first sign-in, so the identity carries a placeholder address.
func mintToken(secret, userID string) (string, error) {
	provider, err := auth.NewTokenProvider(secret, mintedTokenTTL)
	if err != nil {
		return "", err
	}
	return provider.Issue(auth.Identity{
		UserID:      userID,
		Email:       userID + "@" + mintedEmailDomain,
		DisplayName: userID,
	})
}

func (o *options) printer(cmd *cobra.Command) *Printer {
	return NewPrinter(cmd.OutOrStdout(), o.outputFormat)
}

// commandContext bounds one-shot requests; watch commands use the command's
// own context instead.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 30*time.Second)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Fail prints err the way every command reports failures.
func Fail(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "✗ %v\n", err)
}
