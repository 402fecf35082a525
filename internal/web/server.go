package web

import (
	"context"
	"embed"
	"errors"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"helirig/internal/input"
)

//go:embed assets/index.html
var indexHTML embed.FS

// InputController lets the web UI stand in for the rig's buttons and switch.
// Implementations must be safe to call concurrently.
type InputController interface {
	Press(b input.Button)
	SetSwitch(up bool)
}

type inputRequest struct {
	Button string `json:"button,omitempty"`
	Count  int    `json:"count,omitempty"`
	Switch string `json:"switch,omitempty"`
}

func Handler(status *Status, logs *LogBuffer, frames *FrameBroadcaster, inputs InputController) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.HandleFunc("/api/stream", streamHandler(frames))

	mux.HandleFunc("/api/input", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if inputs == nil {
			http.Error(w, "input unavailable", http.StatusNotFound)
			return
		}
		var req inputRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		switch {
		case req.Button != "" && req.Switch != "":
			http.Error(w, "set either button or switch", http.StatusBadRequest)
			return
		case req.Button != "":
			b, ok := input.ParseButton(req.Button)
			if !ok {
				http.Error(w, "unknown button", http.StatusBadRequest)
				return
			}
			n := req.Count
			if n == 0 {
				n = 1
			}
			if n < 0 || n > 100 {
				http.Error(w, "count must be in [1,100]", http.StatusBadRequest)
				return
			}
			for i := 0; i < n; i++ {
				inputs.Press(b)
			}
		case req.Switch != "":
			switch strings.ToLower(req.Switch) {
			case "up":
				inputs.SetSwitch(true)
			case "down":
				inputs.SetSwitch(false)
			default:
				http.Error(w, "switch must be up or down", http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, "set button or switch", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		b, err := indexHTML.ReadFile("assets/index.html")
		if err != nil {
			http.Error(w, "ui missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(b)
	})

	return mux
}

// Serve runs the HTTP server until ctx is canceled.
func Serve(ctx context.Context, listenAddr string, status *Status, logs *LogBuffer, frames *FrameBroadcaster, inputs InputController) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, logs, frames, inputs),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
