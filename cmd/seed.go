/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/leavedesk/apiserver/config"
	"github.com/leavedesk/apiserver/internal/db"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedAdminEmployeeID = "ADMIN001"
	seedAdminEmail      = "admin@leavedesk.local"
)

// seedCmd creates the default admin account if no users exist yet.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a default admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		password := os.Getenv("SEED_ADMIN_PASSWORD")
		if password == "" {
			return errors.New("SEED_ADMIN_PASSWORD is required")
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		users := store.NewUserRepository(conn)
		if _, err := users.GetByEmployeeID(cmd.Context(), seedAdminEmployeeID); err == nil {
			fmt.Println("admin user already exists, nothing to do")
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check admin user: %w", err)
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		admin, err := users.Create(cmd.Context(), types.User{
			EmployeeID:   seedAdminEmployeeID,
			Email:        seedAdminEmail,
			FirstName:    "System",
			LastName:     "Administrator",
			Role:         types.RoleAdmin,
			PasswordHash: string(hashed),
		})
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}

		fmt.Printf("created admin user %s (%s)\n", admin.EmployeeID, admin.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
