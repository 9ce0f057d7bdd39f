package http

import (
	"encoding/json"
	"net/http"
)

// HTMXResponse accumulates HX-Trigger events, headers and an optional body
// and writes them in one go. Events ride a single JSON HX-Trigger header so
// one mutation can reset a form, toast a message and refresh a panel.
type HTMXResponse struct {
	status   int
	triggers map[string]any
	headers  map[string]string
	body     []byte
}

// NewHTMXResponse starts a 200 response with no events.
func NewHTMXResponse() *HTMXResponse {
	return &HTMXResponse{
		status:   http.StatusOK,
		triggers: make(map[string]any),
		headers:  make(map[string]string),
	}
}

// Status overrides the response status code.
func (b *HTMXResponse) Status(code int) *HTMXResponse {
	b.status = code
	return b
}

// Header sets an extra response header.
func (b *HTMXResponse) Header(key, value string) *HTMXResponse {
	b.headers[key] = value
	return b
}

// Trigger adds a named client event with an arbitrary payload.
func (b *HTMXResponse) Trigger(event string, payload any) *HTMXResponse {
	b.triggers[event] = payload
	return b
}

// TriggerFormReset tells the page to clear the form that fired the request.
func (b *HTMXResponse) TriggerFormReset() *HTMXResponse {
	return b.Trigger("form:reset", map[string]any{})
}

// TriggerNotification shows a toast. kind is "success", "error" or "info".
func (b *HTMXResponse) TriggerNotification(kind, message string, durationMs int) *HTMXResponse {
	return b.Trigger("show-notification", map[string]any{
		"type":     kind,
		"message":  message,
		"duration": durationMs,
	})
}

// TriggerSuccessNotification shows a short-lived success toast.
func (b *HTMXResponse) TriggerSuccessNotification(message string) *HTMXResponse {
	return b.TriggerNotification("success", message, 3000)
}

// TriggerErrorNotification shows a longer-lived error toast.
func (b *HTMXResponse) TriggerErrorNotification(message string) *HTMXResponse {
	return b.TriggerNotification("error", message, 5000)
}

// TriggerSummaryRefresh tells the dashboard to reload the month summary.
func (b *HTMXResponse) TriggerSummaryRefresh(year, month int) *HTMXResponse {
	return b.Trigger("summary:refresh", map[string]any{
		"year":  year,
		"month": month,
	})
}

// TriggerDebtsRefresh tells the debts screen to reload its table.
func (b *HTMXResponse) TriggerDebtsRefresh(year, month int) *HTMXResponse {
	return b.Trigger("debts:refresh", map[string]any{
		"year":  year,
		"month": month,
	})
}

// BodyHTML sets an HTML fragment body.
func (b *HTMXResponse) BodyHTML(html string) *HTMXResponse {
	b.body = []byte(html)
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	return b
}

// Write emits headers, the combined HX-Trigger and the body.
func (b *HTMXResponse) Write(w http.ResponseWriter) error {
	if len(b.triggers) > 0 {
		payload, err := json.Marshal(b.triggers)
		if err != nil {
			return err
		}
		w.Header().Set("HX-Trigger", string(payload))
	}
	for key, value := range b.headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, err := w.Write(b.body)
		return err
	}
	return nil
}

// writeHTMXError sends an error toast with the given status and no body
// swap, so the form keeps whatever the user typed.
func writeHTMXError(w http.ResponseWriter, status int, message string) {
	_ = NewHTMXResponse().
		Status(status).
		TriggerErrorNotification(message).
		Write(w)
}
