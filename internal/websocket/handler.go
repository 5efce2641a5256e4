package websocket

import (
	"errors"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"

	"github.com/tabortao/HomeRecord/internal/honor"
)

// HandleWebSocket upgrades the request and streams honor notifications for
// the account named by ?user_id=. A sub-account follows its parent, where
// its honors are recorded.
func HandleWebSocket(hub *Hub, users honor.UserGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		acct, err := honor.ResolveEffective(r.Context(), users, id)
		if errors.Is(err, honor.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			hub.logger.Error("resolve websocket user", "user_id", id, "error", err)
			http.Error(w, "failed to resolve user", http.StatusInternalServerError)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // household LAN, any origin
		})
		if err != nil {
			hub.logger.Warn("accept websocket", "error", err)
			return
		}

		NewClient(hub, conn, acct.EffectiveID).Run(r.Context())
	}
}
