package handler

import (
	"net/http"

	"stagechat/internal/pkg/resp"
)

// HandlePushKey creates an HTTP HandlerFunc that exposes the VAPID public
// key browsers need to create a push subscription. An empty key signals to
// the client that push delivery is disabled.
func HandlePushKey(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"publicKey": deps.Config.VAPIDPublicKey,
		})
	}
}
