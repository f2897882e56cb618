package pagegate

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ppiankov/pagegate/internal/mediator"
	"github.com/ppiankov/pagegate/internal/model"
)

// Middleware mediates each request as a navigation to the requested URL
// before passing it to next. It suits fetch proxies in front of an agent's
// browser. Requests that are not SUCCESS receive a 403 with a JSON body;
// a busy session receives a 409.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := actionFromRequest(r)
		result, err := c.Evaluate(r.Context(), action)

		switch {
		case errors.Is(err, model.ErrBusy):
			writeJSON(w, http.StatusConflict, map[string]any{
				"blocked": true,
				"reason":  err.Error(),
			})
			return
		case err != nil:
			writeJSON(w, http.StatusForbidden, map[string]any{
				"blocked": true,
				"reason":  err.Error(),
			})
			return
		case !result.Allowed():
			writeJSON(w, http.StatusForbidden, map[string]any{
				"blocked":    true,
				"status":     string(result.Status),
				"reason":     result.Explanation,
				"rule_id":    result.RuleID,
				"risk_score": result.RiskScore,
				"handle":     result.Handle,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// actionFromRequest maps an HTTP request to a navigate Action.
func actionFromRequest(r *http.Request) Action {
	target := r.URL.String()
	if r.URL.Host == "" && r.Host != "" {
		target = r.Host + r.URL.RequestURI()
	}
	return Action{
		Kind:   mediator.KindNavigate,
		Target: target,
		Goal:   r.Header.Get("X-Pagegate-Goal"),
	}
}
