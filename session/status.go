package session

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// sessionView is the JSON-facing shape of a Session for the status
// endpoint; it deliberately omits the unexported lifecycle fields.
type sessionView struct {
	Zone      string `json:"zone"`
	OldSerial uint32 `json:"old_serial"`
	NewSerial uint32 `json:"new_serial"`
	SpoolPath string `json:"spool_path"`
}

// SetupStatusRouter builds the read-only status router, grounded on the
// teacher's SetupAPIRouter: a mux.Router with one GET endpoint under
// /api/v1. Unlike the teacher's API, this router never mutates state —
// it only ever reads m.Sessions().
func SetupStatusRouter(m *Manager) *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	sr := r.PathPrefix("/api/v1").Subrouter()
	sr.HandleFunc("/sessions", statusSessionsHandler(m)).Methods("GET")
	return r
}

func statusSessionsHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions := m.Sessions()
		views := make([]sessionView, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, sessionView{
				Zone:      s.ZoneName,
				OldSerial: s.OldSerial,
				NewSerial: s.NewSerial,
				SpoolPath: s.SpoolPath,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(views); err != nil {
			log.Printf("ixfrdiff: status endpoint: encoding response: %v", err)
		}
	}
}
