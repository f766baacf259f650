package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	API     *http.Client // elections feed + ballot detail
	Webhook *http.Client // notification delivery
}

func NewClients() *Clients {
	return &Clients{
		API:     &http.Client{Timeout: 30 * time.Second},
		Webhook: &http.Client{Timeout: 15 * time.Second},
	}
}
