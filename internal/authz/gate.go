package authz

import (
	"strings"
)

// Gate decides whether a chat may contribute files. It is built once
// from config at startup and never mutated; changing the allow-list
// requires a restart.
type Gate struct {
	allowed map[string]struct{}
	ordered []string
}

// NewGate builds a gate from the configured allow-list. An empty list
// means every group/channel origin is rejected; there is no "allow all".
func NewGate(chatIDs []string) *Gate {
	allowed := make(map[string]struct{}, len(chatIDs))
	ordered := make([]string, 0, len(chatIDs))
	for _, id := range chatIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := allowed[id]; ok {
			continue
		}
		allowed[id] = struct{}{}
		ordered = append(ordered, id)
	}
	return &Gate{allowed: allowed, ordered: ordered}
}

// Allowed reports whether the chat id is on the allow-list.
func (g *Gate) Allowed(chatID string) bool {
	_, ok := g.allowed[strings.TrimSpace(chatID)]
	return ok
}

// List returns the allow-listed chat ids in configuration order.
func (g *Gate) List() []string {
	out := make([]string, len(g.ordered))
	copy(out, g.ordered)
	return out
}

// Size returns the number of allow-listed chats.
func (g *Gate) Size() int {
	return len(g.ordered)
}
