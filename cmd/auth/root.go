package main

import (
	"github.com/aussiebroadwan/congregation/internal/auth/app"
	"github.com/spf13/cobra"
)

// envFile is an optional dotenv file loaded before the environment is parsed.
var envFile string

// NewRootCmd builds the CLI. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "congregation-auth",
		Short: "Congregation account and session service",
		Long: `congregation-auth registers accounts, signs members in with a password
or Google, and issues the tokens the rest of Congregation trusts.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

// NewVersionCmd prints the build version.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Println(app.BuildVersion)
			return nil
		},
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig(envFile)
	if err != nil {
		return err
	}

	application, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return application.Run(cmd.Context())
}
