package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/buddybox/buddybox/internal/core/service"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token",
	Long:  "Issue a signed bearer token for scripts and automation that call the backup API",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := service.NewAuthService(cfg.JWTSecretKey, cfg.JWTAlgorithm).IssueToken(tokenSubject, tokenRole, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("buddybox " + Version)
	},
}

// Version is set at build time with -ldflags "-X".
var Version = "dev"

func init() {
	rootCmd.AddCommand(tokenCmd, versionCmd)
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "automation", "Token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "backup_admin", "Token role")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
