package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"despeses/internal/core"
)

// parsePeriod reads year/month from the given values, falling back to the
// current month when absent or out of range.
func parsePeriod(values url.Values, now time.Time) core.Period {
	year, _ := strconv.Atoi(strings.TrimSpace(values.Get("year")))
	month, _ := strconv.Atoi(strings.TrimSpace(values.Get("month")))
	p, err := core.NewPeriod(year, month)
	if err != nil {
		return core.PeriodOf(now)
	}
	return p
}

// parseSalary reads the salary override, falling back to the configured
// default when absent or malformed.
func parseSalary(values url.Values, fallback core.Money) core.Money {
	raw := strings.TrimSpace(values.Get("salary"))
	if raw == "" {
		return fallback
	}
	salary, err := core.ParseMoney(raw)
	if err != nil || salary.Cents < 0 {
		return fallback
	}
	return salary
}

// sanitizeInput trims whitespace and strips control characters except tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequestBodyParser reads a request body once and answers field lookups
// whether the client sent JSON or a form. HTMX posts forms; scripted
// clients tend to post JSON.
type RequestBodyParser struct {
	jsonData map[string]any
	formData url.Values
	isJSON   bool
}

// ParseRequestBody consumes the request body and prepares field access.
func ParseRequestBody(r *http.Request) (*RequestBodyParser, error) {
	parser := &RequestBodyParser{}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		parser.isJSON = true
		if err := json.Unmarshal(body, &parser.jsonData); err != nil {
			return nil, err
		}
		return parser, nil
	}

	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, err
	}
	parser.formData = values
	return parser, nil
}

// Get returns the sanitized value for a field, from either encoding.
func (p *RequestBodyParser) Get(field string) string {
	if p.isJSON {
		return sanitizeInput(stringValue(p.jsonData[field]))
	}
	return sanitizeInput(p.formData.Get(field))
}

// IsJSON reports whether the body was a JSON document.
func (p *RequestBodyParser) IsJSON() bool {
	return p.isJSON
}

// stringValue renders a decoded JSON value as the string a form would have
// carried. Numbers drop a trailing ".00" so field semantics match.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return ""
	}
}

// requireMethod guards a handler against unexpected verbs.
func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, "Mètode no permès", http.StatusMethodNotAllowed)
	return false
}

// parseFormOrFail parses a form body and writes the 400 itself on failure.
func parseFormOrFail(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulari no vàlid", http.StatusBadRequest)
		return false
	}
	return true
}
