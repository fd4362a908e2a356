// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session holds the mutable state shared by the operations of one
// session attempt.
package session

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
)

// ErrContextBusy is returned by Acquire when another pipeline pass already
// owns the Context.
var ErrContextBusy = errors.New("session context is owned by another pass")

// Settings is the policy snapshot operations validate against.
type Settings struct {
	VirtualMachinePolicy config.Policy
	RemoteSessionPolicy  config.Policy
}

// Context is the single mutable record operations read and write during a
// session attempt. Identifiers and addresses are plain fields: only the
// owning pass writes them. Flags and decisions may be read from outside the
// pass (status reporting) and are guarded.
type Context struct {
	Config   config.AppConfig
	Settings Settings

	RuntimeID uuid.UUID
	SessionID uuid.UUID
	AuthToken uuid.UUID

	ClientAddress  string
	RuntimeAddress string
	ServiceAddress string

	// Workspace is the per-session directory, empty until created.
	Workspace string

	owned atomic.Bool

	mu        sync.RWMutex
	flags     map[string]bool
	decisions map[text.Key]bool
}

// New creates a Context for a fresh session attempt. The runtime id and
// runtime address stay fixed for the lifetime of the Context.
func New(cfg config.AppConfig) *Context {
	sc := &Context{
		flags:     make(map[string]bool),
		decisions: make(map[text.Key]bool),
	}
	sc.RuntimeID = uuid.New()
	sc.RuntimeAddress = join(cfg.BaseAddress, "runtime", sc.RuntimeID.String())
	sc.ServiceAddress = cfg.ServiceAddress()
	sc.SetConfig(cfg)
	sc.Renew()
	return sc
}

// SetConfig replaces the configuration snapshot and the derived settings.
func (sc *Context) SetConfig(cfg config.AppConfig) {
	sc.Config = cfg
	sc.Settings = Settings{
		VirtualMachinePolicy: cfg.Security.VirtualMachinePolicy,
		RemoteSessionPolicy:  cfg.Security.RemoteSessionPolicy,
	}
}

// Renew assigns a new session id, auth token and client address. Decisions
// taken for the previous session do not carry over.
func (sc *Context) Renew() {
	sc.SessionID = uuid.New()
	sc.AuthToken = uuid.New()
	sc.ClientAddress = join(sc.Config.BaseAddress, "client", uuid.NewString())

	sc.mu.Lock()
	sc.decisions = make(map[text.Key]bool)
	sc.mu.Unlock()
}

// ClearIdentifiers resets the per-session identifiers.
func (sc *Context) ClearIdentifiers() {
	sc.SessionID = uuid.Nil
	sc.AuthToken = uuid.Nil
	sc.ClientAddress = ""
}

// HasIdentifiers reports whether session id, token and client address are set.
func (sc *Context) HasIdentifiers() bool {
	return sc.SessionID != uuid.Nil && sc.AuthToken != uuid.Nil && sc.ClientAddress != ""
}

// Acquire marks the Context as owned by the caller.
func (sc *Context) Acquire() error {
	if !sc.owned.CompareAndSwap(false, true) {
		return ErrContextBusy
	}
	return nil
}

// Release gives up ownership. Releasing an unowned Context is a no-op.
func (sc *Context) Release() {
	sc.owned.Store(false)
}

// Owned reports whether a pass currently holds the Context.
func (sc *Context) Owned() bool { return sc.owned.Load() }

// SetFlag stores a named boolean for later operations.
func (sc *Context) SetFlag(name string, v bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.flags[name] = v
}

// Flag returns the named boolean and whether it was set.
func (sc *Context) Flag(name string) (bool, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	v, ok := sc.flags[name]
	return v, ok
}

// Flags returns a copy of all flags.
func (sc *Context) Flags() map[string]bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	out := make(map[string]bool, len(sc.flags))
	for k, v := range sc.flags {
		out[k] = v
	}
	return out
}

// Decide records the operator's answer to an action-required topic.
func (sc *Context) Decide(topic text.Key, approved bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.decisions[topic] = approved
}

// Decision returns the recorded answer for topic, if any.
func (sc *Context) Decision(topic text.Key) (approved bool, ok bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	approved, ok = sc.decisions[topic]
	return approved, ok
}

// Clone returns a deep copy. The copy is never owned.
func (sc *Context) Clone() *Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	c := &Context{
		Config:         sc.Config,
		Settings:       sc.Settings,
		RuntimeID:      sc.RuntimeID,
		SessionID:      sc.SessionID,
		AuthToken:      sc.AuthToken,
		ClientAddress:  sc.ClientAddress,
		RuntimeAddress: sc.RuntimeAddress,
		ServiceAddress: sc.ServiceAddress,
		Workspace:      sc.Workspace,
		flags:          make(map[string]bool, len(sc.flags)),
		decisions:      make(map[text.Key]bool, len(sc.decisions)),
	}
	for k, v := range sc.flags {
		c.flags[k] = v
	}
	for k, v := range sc.decisions {
		c.decisions[k] = v
	}
	return c
}

func join(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
