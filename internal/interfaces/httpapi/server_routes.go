package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/games/{gameID}/lines", handler.ListGameLines)
	mux.HandleFunc("GET /v1/games/{gameID}/lines/{market}", handler.GetGameLine)
	mux.HandleFunc("GET /v1/games/{gameID}/history", handler.ListGameHistory)
	mux.HandleFunc("GET /v1/games/{gameID}/history/{market}", handler.GetGameHistory)
	mux.HandleFunc("GET /v1/games/{gameID}/snapshots/{market}", handler.ListGameSnapshots)
	mux.HandleFunc("GET /v1/identity/unresolved", handler.ListUnresolvedEvents)
}

func registerIngestRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/ingest/odds", handler.IngestOdds)
	mux.HandleFunc("POST /v1/ingest/results", handler.IngestResults)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/lock-sweep", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLockSweepJob)))
	mux.Handle("POST /v1/internal/jobs/reconcile", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunReconcileJob)))
	mux.Handle("POST /v1/internal/jobs/archive/{gameID}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunArchiveJob)))
}
