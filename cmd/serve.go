package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort   int
	serveFolder string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve preprocessed campaign results over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		folder := serveFolder
		if folder == "" {
			folder = cfg.Output.Folder
		}
		if _, err := os.Stat(folder); err != nil {
			return eris.Wrapf(err, "output folder %s", folder)
		}

		// Set up routes
		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("GET /campaigns", func(w http.ResponseWriter, r *http.Request) {
			names, err := listCampaigns(folder)
			if err != nil {
				http.Error(w, `{"error":"could not list campaigns"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"campaigns": names})
		})

		mux.HandleFunc("GET /campaigns/{name}/locations", func(w http.ResponseWriter, r *http.Request) {
			serveArtifact(w, folder, r.PathValue("name"), ".locations.geojson", "application/geo+json")
		})

		mux.HandleFunc("GET /campaigns/{name}/ballots", func(w http.ResponseWriter, r *http.Request) {
			serveArtifact(w, folder, r.PathValue("name"), ".ballots.csv", "text/csv")
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server", zap.Int("port", port), zap.String("folder", folder))
		return serveWithShutdown(ctx, srv, ln)
	},
}

const shutdownTimeout = 10 * time.Second

// serveWithShutdown serves on ln until ctx is canceled, then drains in-flight
// requests. The drain gets its own deadline because ctx is already done.
func serveWithShutdown(ctx context.Context, srv *http.Server, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func listCampaigns(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".metadata.yaml"); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func serveArtifact(w http.ResponseWriter, folder, campaign, suffix, contentType string) {
	// Campaign names come from the URL, keep them inside the folder.
	if campaign == "" || strings.ContainsAny(campaign, "/\\") {
		http.Error(w, `{"error":"invalid campaign name"}`, http.StatusBadRequest)
		return
	}
	path := filepath.Join(folder, campaign+suffix)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, `{"error":"campaign not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"could not read artifact"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveFolder, "folder", "", "results folder (default from config)")
	rootCmd.AddCommand(serveCmd)
}
