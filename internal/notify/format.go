package notify

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	default:
		return json.Marshal(event)
	}
}

func formatSlack(event Event) ([]byte, error) {
	title := fmt.Sprintf("pagegate: %s", event.Status)
	if event.Status == "PENDING" {
		title = "pagegate: approval required"
	}

	fields := []any{
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Action:* %s", event.Kind)},
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Target:* %s", event.Target)},
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Risk:* %.1f/10", event.RiskScore)},
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Explanation)},
	}
	if event.Handle != "" {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Handle:* `%s`", event.Handle)})
	}

	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{"type": "plain_text", "text": title},
			},
			map[string]any{
				"type":   "section",
				"fields": fields,
			},
		},
	}
	return json.Marshal(payload)
}
