package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/glowclinic/scheduling/internal/booking"
	"github.com/glowclinic/scheduling/internal/notify"
)

const notificationFeedLimit = 50

// listNotificationsHandler returns the caller's unread feed. Owner and staff
// additionally see the broadcast rows.
func listNotificationsHandler(store *notify.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		items, err := store.ListForUser(r.Context(), actor.ID, notificationFeedLimit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if actor.Role == booking.RoleStaff || actor.Role == booking.RoleOwner {
			broadcast, err := store.ListBroadcast(r.Context(), notificationFeedLimit)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}
			items = append(items, broadcast...)
		}

		out := make([]NotificationResponse, 0, len(items))
		for _, n := range items {
			out = append(out, toNotificationResponse(n))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// markNotificationsReadHandler marks one notification read, or the caller's
// whole feed when "all" is set. For owner and staff, "all" also clears the
// shared broadcast feed.
func markNotificationsReadHandler(store *notify.PgStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		var req MarkReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		switch {
		case req.All:
			if err := store.MarkAllRead(r.Context(), &actor.ID); err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}
			if actor.Role == booking.RoleStaff || actor.Role == booking.RoleOwner {
				if err := store.MarkAllRead(r.Context(), nil); err != nil {
					writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
					return
				}
			}
		case req.NotificationID != nil:
			id, err := uuid.Parse(*req.NotificationID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_notification_id", "notification_id must be a valid UUID")
				return
			}
			if err := store.MarkRead(r.Context(), id); err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "validation_error", "either notification_id or all is required")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
