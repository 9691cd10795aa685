package httptransport

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	dErrors "campusvote/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so
// every handler emits the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]any{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	}
	if details := dErrors.DetailsOf(err); len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, dErrors.ToHTTPStatus(code), body)
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// clientMeta extracts the caller's address and a normalized user agent
// string for the audit trail.
type clientMeta struct {
	IP        string
	UserAgent string
}

func extractClientMeta(r *http.Request) clientMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		// First hop is the client; the rest are proxies.
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}

	raw := r.UserAgent()
	if raw == "" {
		return clientMeta{IP: ip}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	normalized := name
	if version != "" {
		normalized += "/" + version
	}
	if os := ua.OS(); os != "" {
		normalized += " (" + os + ")"
	}
	if ua.Bot() {
		normalized += " [bot]"
	}
	return clientMeta{IP: ip, UserAgent: normalized}
}
