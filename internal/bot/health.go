// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// healthStatus is the /healthz response body.
type healthStatus struct {
	Status       string          `json:"status"`
	Integrations map[string]bool `json:"integrations"`
}

// ServeHealth runs a liveness endpoint on the configured address until ctx
// is done. It returns immediately when no address is configured.
func (b *Bot) ServeHealth(ctx context.Context) {
	addr := b.cfg.Bot.HealthAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthStatus{
			Status: "ok",
			Integrations: map[string]bool{
				"telegram":         b.cfg.Telegram.Token != "",
				"llm":              b.cfg.LLM.APIKey != "",
				"eden":             b.cfg.Eden.APIKey != "",
				"semantic_scholar": b.cfg.Search.EnableSemanticScholar,
				"crossref":         b.cfg.Search.EnableCrossRef,
				"zotero":           b.citations.Configured(),
				"storage":          b.uploader.Configured(),
			},
		})
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	b.log.Info("health endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		b.log.Warn("health endpoint stopped", zap.Error(err))
	}
}
