package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/glowclinic/scheduling/internal/reminders"
)

// cronRemindersHandler triggers a reminder run. Guarded by a shared bearer
// token so only the external scheduler can call it; an optional filter
// restricts the run to one reminder kind.
func cronRemindersHandler(svc *reminders.Service, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			writeError(w, http.StatusServiceUnavailable, "cron_disabled", "no cron token configured")
			return
		}
		auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(auth), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or missing bearer token")
			return
		}

		var res reminders.Result
		var err error
		if filter := r.URL.Query().Get("filter"); filter != "" {
			kind := reminders.Kind(filter)
			switch kind {
			case reminders.KindTwoDay, reminders.KindOneDay, reminders.KindOneHour:
			default:
				writeError(w, http.StatusBadRequest, "invalid_filter", "filter must be two_day, one_day or one_hour")
				return
			}
			res, err = svc.RunKind(r.Context(), kind)
		} else {
			res, err = svc.Run(r.Context())
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, ReminderRunResponse{Sent: res.Sent, Skipped: res.Skipped, Failed: res.Failed})
	}
}
