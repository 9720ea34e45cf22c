package handlers

import (
	"net/http"

	"bluetrace-hq/gateway/pkg/api/types"
)

// RootResponse is the body of GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// Root answers GET / with the service banner.
func Root(message, version string) http.Handler {
	body := RootResponse{Message: message, Version: version}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		types.WriteJSON(w, http.StatusOK, body)
	})
}
