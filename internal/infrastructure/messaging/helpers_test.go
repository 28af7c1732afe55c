package messaging

import "net/http"

func httpHandler(h *ReactionHub) http.Handler {
	return http.HandlerFunc(h.ServeWS)
}
