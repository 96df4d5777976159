package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/ussdgw/internal/cli/prompt"
	"github.com/marmos91/ussdgw/pkg/api/auth"
	"github.com/marmos91/ussdgw/pkg/config"
)

var tokenForce bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator bearer token for the menu reload endpoint",
	Long: `Issues a short-lived bearer token signed with the configured
JWT_SECRET. The token authorizes POST /internal/menu/reload; there is no
other identity or role in this gateway.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().BoolVarP(&tokenForce, "force", "f", false, "skip the confirmation prompt")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.API.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not configured, cannot issue a token")
	}

	ok, err := prompt.ConfirmWithForce("Issue a new operator token", tokenForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
		return nil
	}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: cfg.API.JWTSecret})
	if err != nil {
		return fmt.Errorf("failed to initialize operator auth: %w", err)
	}

	token, expiresAt, err := jwtService.GenerateOperatorToken()
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Println(token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires: %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
