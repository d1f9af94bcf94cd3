package main

import (
	"github.com/spf13/cobra"

	"github.com/leadflow/leadflow-backend/internal/auth/jwt"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an agent access token for development",
	RunE:  runToken,
}

func init() {
	f := tokenCmd.Flags()
	f.String("agent", "", "agent id placed in the token")
	f.String("name", "", "agent display name")
	f.String("branch", "", "agent branch")
	_ = tokenCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	agent, _ := cmd.Flags().GetString("agent")
	name, _ := cmd.Flags().GetString("name")
	branch, _ := cmd.Flags().GetString("branch")

	tok, err := jwt.NewManager(&cfg.JWT).GenerateAccessToken(&jwt.AgentInfo{ID: agent, Name: name, Branch: branch})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), tok)
}
