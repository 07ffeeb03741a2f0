package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	RecurringEntries *RecurringEntryHandler
	Generation       *GenerationHandler
	Middleware       []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.RecurringEntries != nil {
		mux.HandleFunc("/recurring-entries", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.RecurringEntries.List(w, r)
			case http.MethodPost:
				cfg.RecurringEntries.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/recurring-entries/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/recurring-entries/")
			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithEntryID(r.Context(), id)
			r = r.WithContext(ctx)

			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.RecurringEntries.Get(w, r)
				case http.MethodPut:
					cfg.RecurringEntries.Update(w, r)
				case http.MethodDelete:
					cfg.RecurringEntries.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "activate":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.RecurringEntries.Activate(w, r)
			case "deactivate":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.RecurringEntries.Deactivate(w, r)
			case "occurrences":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.RecurringEntries.PreviewOccurrences(w, r)
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/time-entries", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.RecurringEntries.ListTimeEntries(w, r)
		})
	}

	if cfg.Generation != nil {
		mux.HandleFunc("/generation/runs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Generation.Run(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
