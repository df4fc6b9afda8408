// Package sse provides Server-Sent Events client management for preview
// tabs following a draft's status.
package sse

import (
	"sync"

	"github.com/inkwell-cms/inkwell/internal/model"
)

const (
	EventSaved     = "saved"
	EventPublished = "published"
	EventReload    = "reload"
)

type Client struct {
	Msg     chan string
	DraftID model.DraftID
}

type Clients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewClients() *Clients {
	return &Clients{
		clients: make(map[*Client]bool),
	}
}

func (s *Clients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *Clients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, client)
	close(client.Msg)
}

// Broadcast pushes a status message to every preview tab following the
// draft. Slow clients are skipped rather than blocked on.
func (s *Clients) Broadcast(draftID model.DraftID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.DraftID == draftID {
			select {
			case client.Msg <- msg:
			default:
			}
		}
	}
}

func (s *Clients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
