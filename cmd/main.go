package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kyokki-backend/cmd/config"
	migration "kyokki-backend/cmd/database/migrate"
	"kyokki-backend/internal/utils"
	"kyokki-backend/pkg/events"
	"kyokki-backend/pkg/jwt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "kyokki",
	Short:         "Kyokki grocery receipt and inventory backend",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.LoadConfig(configFile)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the event relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDB()
		if err != nil {
			return err
		}
		return migration.Migrate(db)
	},
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <client-id>",
	Short: "Issue an API bearer token signed with JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := utils.GetConfig("JWT_SECRET")
		if secret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		token, err := jwt.NewJWTService(secret).GenerateClientToken(args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "path to the yaml config file")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func serve(ctx context.Context) error {
	db, err := config.ConnectDB()
	if err != nil {
		return err
	}

	hub := events.NewHub()
	broker := events.NewBroker(hub, utils.GetConfigInt("EVENT_BUFFER_SIZE"))

	app, err := config.NewApp(ctx, db, hub, broker)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return broker.Run(gctx)
	})
	g.Go(func() error {
		return app.Listen(":" + utils.GetConfig("APP_PORT"))
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorw("command failed", "error", err)
		os.Exit(1)
	}
}
