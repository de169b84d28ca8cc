package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var viewPort int

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Serve a rendered report directory for interactive viewing",
	Long:  "Serves the report artifacts over local HTTP so the thematic map can be panned and zoomed in a browser. Presentation only: no pipeline stage runs here.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dir := cfg.Report.OutputDir
		if _, err := os.Stat(dir); err != nil {
			return eris.Wrapf(err, "view: report directory %s (run `holcstat run` first)", dir)
		}

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}))
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		r.Handle("/*", http.FileServer(http.Dir(dir)))

		port := viewPort
		if port == 0 {
			port = cfg.Viewer.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down viewer")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("viewer started",
			zap.Int("port", port),
			zap.String("dir", dir),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "view: listen")
		}

		return nil
	},
}

func init() {
	viewCmd.Flags().IntVar(&viewPort, "port", 0, "viewer port (default from config)")
	rootCmd.AddCommand(viewCmd)
}
