package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bastiangx/grammarserve/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/rs/cors"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackContentType selects msgpack bodies on the HTTP front.
const MsgpackContentType = "application/msgpack"

const maxBodyBytes = 4 << 20

// NewHTTPHandler serves the engine over HTTP with CORS for cfg.CORSOrigins.
func NewHTTPHandler(engine Engine, cfg config.ServerConfig) http.Handler {
	d := &dispatcher{engine: engine, maxText: cfg.MaxTextLength}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", d.serveOp(OpAnalyze))
	mux.HandleFunc("POST /synthesize", d.serveOp(OpSynthesize))
	mux.HandleFunc("POST /score", d.serveOp(OpScore))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		resp, code := d.handle(r.Context(), Request{Op: OpHealth})
		writeBody(w, r, code, resp)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

func (d *dispatcher) serveOp(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var err error
		if isMsgpack(r) {
			err = msgpack.NewDecoder(body).Decode(&req)
		} else {
			err = json.NewDecoder(body).Decode(&req)
		}
		if err != nil {
			resp, code := errorResponse("", fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			writeBody(w, r, code, resp)
			return
		}
		req.Op = op
		resp, code := d.handle(r.Context(), req)
		writeBody(w, r, code, resp)
	}
}

func isMsgpack(r *http.Request) bool {
	return r.Header.Get("Content-Type") == MsgpackContentType
}

func writeBody(w http.ResponseWriter, r *http.Request, status int, v any) {
	if isMsgpack(r) {
		w.Header().Set("Content-Type", MsgpackContentType)
		w.WriteHeader(status)
		if err := msgpack.NewEncoder(w).Encode(v); err != nil {
			log.Errorf("Encoding HTTP response: %v", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Encoding HTTP response: %v", err)
	}
}

// ListenAndServe serves handler on addr until ctx is done, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
