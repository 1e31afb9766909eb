package main

import (
	"fmt"

	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/internal/session"
	"dogeow-realtime/pkg/jwt"

	"github.com/spf13/cobra"
)

var (
	tokenUserID int64
	tokenEmail  string
	tokenPrint  bool
	tokenLogout bool
)

// tokenCmd signs a development token and logs the user in
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a development token and write it to the session file",
	Long: `Token signs a JWT for the given user with JWT_SECRET_KEY and writes it to
the session file, which a running listener picks up as a login.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user-id", 0, "User id carried in the token subject")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().BoolVar(&tokenPrint, "print", false, "Print the token instead of writing the session file")
	tokenCmd.Flags().BoolVar(&tokenLogout, "logout", false, "Clear the session file instead")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if tokenLogout {
		if err := session.WriteFile(cfg.Session.Path, realtime.Session{}); err != nil {
			return fmt.Errorf("write session: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged out (%s)\n", cfg.Session.Path)
		return nil
	}
	if tokenUserID <= 0 {
		return fmt.Errorf("--user-id must be positive")
	}

	manager, err := jwt.New(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Issuer:    cfg.JWT.Issuer,
		TTL:       cfg.JWT.TTL,
	})
	if err != nil {
		return err
	}
	token, err := manager.GenerateToken(tokenUserID, tokenEmail)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	if tokenPrint {
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	}

	userID := tokenUserID
	if err := session.WriteFile(cfg.Session.Path, realtime.Session{
		IsAuthenticated: true,
		UserID:          &userID,
		Token:           token,
	}); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in user %d (%s)\n", tokenUserID, cfg.Session.Path)
	return nil
}
