// Package spa serves the built admin frontend: static files with long-lived
// caching for hashed assets, and index.html for client-side routes.
package spa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

const (
	cacheImmutable = "public, max-age=31536000, immutable"
	cacheNone      = "no-cache"
	indexFile      = "index.html"
)

type handler struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewHandler returns a handler serving the directory root.
func NewHandler(root string, logger *slog.Logger) http.Handler {
	return NewFSHandler(os.DirFS(root), logger)
}

// NewFSHandler is NewHandler over an arbitrary file system.
func NewFSHandler(fsys fs.FS, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &handler{fsys: fsys, logger: logger}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	urlPath := r.URL.Path
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}
	// Client routes may carry a trailing slash; fs paths never do.
	name := strings.TrimSuffix(strings.TrimPrefix(urlPath, "/"), "/")
	if name == "" {
		name = indexFile
	}
	if !fs.ValidPath(name) {
		h.logger.Warn("rejected path", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	if h.serve(w, r, name, cacheHeaderFor(urlPath)) {
		return
	}
	// Client-side routes have no extension; anything else is a missing asset.
	if !strings.Contains(urlPath, ".") && h.serve(w, r, indexFile, cacheNone) {
		return
	}
	http.Error(w, "Not found", http.StatusNotFound)
}

// serve writes the named regular file and reports whether it existed.
func (h *handler) serve(w http.ResponseWriter, r *http.Request, name, cacheControl string) bool {
	f, err := h.fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, info.Name(), info.ModTime(), rs)
		return true
	}
	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("read file", "name", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return true
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), bytes.NewReader(data))
	return true
}

func cacheHeaderFor(urlPath string) string {
	switch {
	case strings.HasPrefix(urlPath, "/assets/"):
		return cacheImmutable
	case urlPath == "/" || path.Ext(urlPath) == ".html":
		return cacheNone
	}
	return ""
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		logger.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Info("Server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
