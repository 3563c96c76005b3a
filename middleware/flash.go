package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/agencyAuth/cookie"
)

const flashCookieName = "flash"

// Flash categories.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

func flashPolicy(p cookie.Policy) cookie.Policy {
	p.Name = flashCookieName
	return p
}

// SetFlash queues one message for the next page. A later call replaces it.
func SetFlash(w http.ResponseWriter, p cookie.Policy, category, message string) {
	data, err := json.Marshal(Flash{Category: category, Message: message})
	if err != nil {
		return
	}
	cookie.Set(w, flashPolicy(p), base64.RawURLEncoding.EncodeToString(data), 0)
}

// PopFlash returns and clears the pending message.
func PopFlash(w http.ResponseWriter, r *http.Request, p cookie.Policy) (Flash, bool) {
	fp := flashPolicy(p)
	raw := cookie.Read(r, fp)
	if raw == "" {
		return Flash{}, false
	}
	cookie.Clear(w, fp)

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return Flash{}, false
	}
	var f Flash
	if err := json.Unmarshal(data, &f); err != nil || f.Message == "" {
		return Flash{}, false
	}
	return f, true
}
