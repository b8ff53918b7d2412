package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coverline/coverline/internal/profile"
	"github.com/coverline/coverline/server"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "coverline",
	Short: "Coverline is a conversational health-insurance search assistant",
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Version: version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(1)
		}

		setupLogger(instanceProfile)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := server.NewServer(ctx, instanceProfile)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			slog.Info("received signal, shutting down", "signal", sig.String())
			s.Shutdown(ctx)
			cancel()
		}()

		if err := s.Start(ctx); err != nil {
			slog.Error("server exited with error", "error", err)
			cancel()
			os.Exit(1)
		}
	},
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("coverline")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")

	if err := viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port")); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
