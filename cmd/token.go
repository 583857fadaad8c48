package cmd

import (
	"fmt"
	"time"

	"github.com/AzielCF/az-inbox/pkg/security"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an agent API token signed with APP_JWT_SECRET",
	Run: func(cmd *cobra.Command, _ []string) {
		user, _ := cmd.Flags().GetString("user")
		tenantID, _ := cmd.Flags().GetString("tenant")
		admin, _ := cmd.Flags().GetBool("admin")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		if user == "" {
			logrus.Fatalln("--user is required")
		}
		if tenantID == "" && !admin {
			logrus.Fatalln("--tenant is required for non-admin tokens")
		}

		tok, err := security.GenerateToken([]byte(cfg.App.JWTSecret), user, tenantID, admin, ttl)
		if err != nil {
			logrus.Fatalf("failed to sign token: %v", err)
		}
		fmt.Println(tok)
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "user id placed in the sub claim")
	tokenCmd.Flags().String("tenant", "", "tenant id placed in the tenant_id claim")
	tokenCmd.Flags().Bool("admin", false, "grant administrative scope")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
