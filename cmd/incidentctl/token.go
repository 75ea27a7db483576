package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"incident-map/pkg/utils"
)

var tokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "Sign an API token for an existing user",
	Long: `Signs a JWT with the server's JWT_SECRET for a user that already exists.
Intended for operators and local testing; end users get tokens from the
identity provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	ttl, err := cmd.Flags().GetDuration("ttl")
	if err != nil {
		return err
	}

	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Cleanup()

	user, err := container.UserRepository.GetByEmail(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("user %s: %w", args[0], err)
	}

	token, err := utils.GenerateToken(user.ID, container.Config.JWT.Secret, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
