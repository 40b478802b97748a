// Package inspect mounts HTTP endpoints exposing which configuration
// properties a Factory has seen and which it has actually consumed,
// for operational visibility into a running process's effective
// configuration without exposing sensitive values.
package inspect

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/configbind"
)

// Routes returns a chi.Router exposing:
//
//	GET /seen  — every property name the binding engine looked up
//	GET /used  — every property name actually consumed, with a
//	             security_sensitive flag in place of the value itself
func Routes(f *configbind.Factory) chi.Router {
	r := chi.NewRouter()
	r.Get("/seen", handleSeen(f))
	r.Get("/used", handleUsed(f))
	return r
}

func handleSeen(f *configbind.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, f.AllSeenProperties())
	}
}

type usedProperty struct {
	Name              string `json:"name"`
	SecuritySensitive bool   `json:"security_sensitive"`
}

func handleUsed(f *configbind.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		props := f.UsedProperties()
		out := make([]usedProperty, len(props))
		for i, p := range props {
			out[i] = usedProperty{Name: p.Name, SecuritySensitive: p.SecuritySensitive}
		}
		writeJSON(w, out)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
