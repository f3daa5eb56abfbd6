/*
This file contains the HandleWebSocket function, which is responsible for rate limiting,
upgrading the HTTP connection to WebSocket, and initiating the connection lifecycle.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"stagechat/internal/app/chat"
	"stagechat/internal/pkg/errs"
	"stagechat/internal/pkg/limiter"
	"stagechat/internal/pkg/logx"
	"stagechat/internal/pkg/randx"
	"stagechat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Connections arrive anonymous; identity binding happens over the socket via the login event.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		connID, err := randx.ConnectionID()
		if err != nil {
			logx.Error(err, "Failed to generate connection ID")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		conn := chat.NewConn(connID, wsConn, deps.Hub, deps.ChatDeps)

		go conn.WritePump()

		logx.Info("WebSocket connection established", "conn_id", connID)

		conn.ReadPump(r.Context())
	}
}
