package cli

import (
	"fmt"
	"os"

	"github.com/broker-one/core/internal/api/middleware"
	"github.com/broker-one/core/internal/config"
	"github.com/broker-one/core/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
	userService   *services.UserService
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "broker_core",
	Short: "Broker One email drafting backend",
	Long: `Broker One is the backend service for an AI-assisted email drafting
workflow for office leasing brokers.

This command line tool provides:
  - Key management: show and reset the API key
  - User management: create users, list users, reset passwords

Examples:
  broker_core key show          # Show the current API key
  broker_core key reset         # Reset the API key
  broker_core user create       # Create a new user
  broker_core user list         # List all users
  broker_core user reset-pwd    # Reset a user's password`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	// Initialize API key manager
	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize API key manager: %v\n", err)
		os.Exit(1)
	}

	userService = services.NewUserService(db)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(userCmd)
}
