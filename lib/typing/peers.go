// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package typing

import (
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/chatsync/lib/clock"
	"github.com/bureau-foundation/chatsync/lib/eventloop"
	"github.com/bureau-foundation/chatsync/lib/ref"
	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

// DefaultMaxAge evicts a typing peer that sends no stop event.
const DefaultMaxAge = 5 * time.Second

// PeersConfig configures a Peers set.
type PeersConfig struct {
	Clock     clock.Clock
	Scheduler eventloop.Scheduler

	// Self is ignored when it appears in typing events.
	Self ref.UserID

	// MaxAge bounds how long a peer stays in the set without a fresh
	// typing event. Zero disables eviction.
	MaxAge time.Duration

	// OnChange runs on the loop whenever the set changes.
	OnChange func()
}

type peer struct {
	member     chat.Member
	generation uint64
	timer      *clock.Timer
}

// Peers is the set of remote members currently typing.
type Peers struct {
	clock     clock.Clock
	scheduler eventloop.Scheduler
	self      ref.UserID
	maxAge    time.Duration
	onChange  func()

	order      []ref.UserID
	peers      map[ref.UserID]*peer
	generation uint64
}

// NewPeers creates an empty set.
func NewPeers(config PeersConfig) *Peers {
	if config.OnChange == nil {
		config.OnChange = func() {}
	}
	return &Peers{
		clock:     config.Clock,
		scheduler: config.Scheduler,
		self:      config.Self,
		maxAge:    config.MaxAge,
		onChange:  config.OnChange,
		peers:     make(map[ref.UserID]*peer),
	}
}

// Started adds member to the set or refreshes its eviction timer.
func (p *Peers) Started(member chat.Member) {
	if member.ID == p.self || member.ID.IsZero() {
		return
	}
	entry, exists := p.peers[member.ID]
	if !exists {
		entry = &peer{}
		p.peers[member.ID] = entry
		p.order = append(p.order, member.ID)
	}
	entry.member = member
	p.arm(entry)
	if !exists {
		p.onChange()
	}
}

// Stopped removes the peer if present.
func (p *Peers) Stopped(user ref.UserID) {
	if p.remove(user) {
		p.onChange()
	}
}

// Clear empties the set and cancels every eviction timer.
func (p *Peers) Clear() {
	if len(p.peers) == 0 {
		return
	}
	for _, entry := range p.peers {
		p.disarm(entry)
	}
	clear(p.peers)
	p.order = nil
	p.onChange()
}

// Names returns the display names of typing peers in the order they
// started typing.
func (p *Peers) Names() []string {
	names := make([]string, 0, len(p.order))
	for _, id := range p.order {
		names = append(names, p.peers[id].member.DisplayName())
	}
	return names
}

// IsTyping reports whether user is in the set.
func (p *Peers) IsTyping(user ref.UserID) bool {
	_, ok := p.peers[user]
	return ok
}

// Len returns the number of typing peers.
func (p *Peers) Len() int { return len(p.peers) }

func (p *Peers) remove(user ref.UserID) bool {
	entry, ok := p.peers[user]
	if !ok {
		return false
	}
	p.disarm(entry)
	delete(p.peers, user)
	for i, id := range p.order {
		if id == user {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

func (p *Peers) arm(entry *peer) {
	p.disarm(entry)
	if p.maxAge <= 0 {
		return
	}
	p.generation++
	entry.generation = p.generation
	generation, user := entry.generation, entry.member.ID
	entry.timer = p.clock.AfterFunc(p.maxAge, func() {
		p.scheduler.Post(func() { p.evict(user, generation) })
	})
}

func (p *Peers) disarm(entry *peer) {
	entry.generation = 0
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
}

func (p *Peers) evict(user ref.UserID, generation uint64) {
	entry, ok := p.peers[user]
	if !ok || entry.generation != generation {
		return
	}
	p.remove(user)
	p.onChange()
}

// Summary renders the typing line for names: "Alice is typing",
// "Alice and Bob are typing", "Alice, Bob and 2 others are typing".
// Returns "" for no names.
func Summary(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing"
	case 2:
		return names[0] + " and " + names[1] + " are typing"
	case 3:
		return strings.Join(names[:2], ", ") + " and " + names[2] + " are typing"
	}
	return fmt.Sprintf("%s and %d others are typing", strings.Join(names[:2], ", "), len(names)-2)
}
