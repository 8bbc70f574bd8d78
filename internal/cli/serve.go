package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph475/e-commerce/internal/config"
	httpd "github.com/joseph475/e-commerce/internal/delivery/http"
	"github.com/joseph475/e-commerce/internal/emvqr"
	"github.com/joseph475/e-commerce/internal/repository"
	"github.com/joseph475/e-commerce/internal/usecase"
)

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func merchantFromConfig(cfg config.Config) emvqr.Merchant {
	return emvqr.Merchant{
		ID:   cfg.Merchant.ID,
		Name: cfg.Merchant.Name,
		City: cfg.Merchant.City,
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewSQLiteRepo(cfg.SQLiteDSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	uc := usecase.NewQRUsecase(repo, usecase.WithMerchant(merchantFromConfig(cfg)))
	h := httpd.NewHandler(uc, repo)

	srv := &http.Server{
		Addr: ":" + cfg.AppPort,
		Handler: h.Routes(httpd.RouterOptions{
			Sig: httpd.SigConfig{
				Secret:        cfg.HMACSecret,
				MaxAgeSeconds: cfg.SigMaxAgeSeconds,
			},
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		log.Printf("Database at %s", cfg.SQLiteDSN)
		if cfg.HMACSecret == "" {
			log.Printf("WARNING: HMAC_SECRET not set, confirm webhook is unauthenticated")
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
