package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "memberdesk/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeError centralizes domain error translation so every route returns
// the same envelope for the same failure code.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}
