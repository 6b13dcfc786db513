// Package access provides the role registry and pause switch that gate
// every mutating operation. Authorization is an explicit {role, account}
// lookup injected into the engine; business logic never consults ambient
// global state.
package access

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Roles recognized by the protocol.
const (
	// RoleAdmin may pause/unpause, change risk parameters, and manage roles.
	RoleAdmin = "DEFAULT_ADMIN_ROLE"

	// RoleOracleAdmin may swap price feeds.
	RoleOracleAdmin = "ORACLE_ADMIN_ROLE"
)

var (
	// ErrPaused is returned by mutating operations while the protocol is
	// paused.
	ErrPaused = errors.New("access: protocol paused")

	// ErrNotPaused is returned by Unpause when the protocol is already
	// running; pause and unpause must stay symmetric.
	ErrNotPaused = errors.New("access: protocol not paused")
)

// UnauthorizedError reports a caller lacking a required role.
type UnauthorizedError struct {
	Account    string
	NeededRole string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("access: account %s is missing role %s", e.Account, e.NeededRole)
}

// Authorizer answers {role, account} capability lookups.
type Authorizer interface {
	HasRole(role, account string) bool
}

// Registry is an in-memory role registry: role identifier → set of
// authorized accounts. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	roles map[string]map[string]struct{}
}

// NewRegistry creates a registry granting admin (the genesis account) both
// built-in roles.
func NewRegistry(admin string) *Registry {
	r := &Registry{roles: make(map[string]map[string]struct{})}
	if admin = normalizeAccount(admin); admin != "" {
		r.grant(RoleAdmin, admin)
		r.grant(RoleOracleAdmin, admin)
	}
	return r
}

// HasRole implements Authorizer.
func (r *Registry) HasRole(role, account string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.roles[role]
	if !ok {
		return false
	}
	_, ok = members[normalizeAccount(account)]
	return ok
}

// Grant adds an account to a role. Caller must hold RoleAdmin.
func (r *Registry) Grant(caller, role, account string) error {
	if err := r.Require(RoleAdmin, caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grant(role, normalizeAccount(account))
	return nil
}

// Revoke removes an account from a role. Caller must hold RoleAdmin.
func (r *Registry) Revoke(caller, role, account string) error {
	if err := r.Require(RoleAdmin, caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.roles[role]; ok {
		delete(members, normalizeAccount(account))
	}
	return nil
}

// Require returns an UnauthorizedError unless account holds role.
func (r *Registry) Require(role, account string) error {
	if !r.HasRole(role, account) {
		return &UnauthorizedError{Account: account, NeededRole: role}
	}
	return nil
}

func (r *Registry) grant(role, account string) {
	if account == "" {
		return
	}
	members, ok := r.roles[role]
	if !ok {
		members = make(map[string]struct{})
		r.roles[role] = members
	}
	members[account] = struct{}{}
}

func normalizeAccount(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

// Pause is the binary protocol-wide stop switch. Zero value is unpaused.
type Pause struct {
	mu     sync.RWMutex
	paused bool
}

// Guard returns ErrPaused if the protocol is paused. Every mutating engine
// operation calls this first.
func (p *Pause) Guard() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.paused {
		return ErrPaused
	}
	return nil
}

// Paused reports the current state.
func (p *Pause) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// Set pauses the protocol; fails with ErrPaused if already paused.
func (p *Pause) Set() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return ErrPaused
	}
	p.paused = true
	return nil
}

// Clear unpauses the protocol; fails with ErrNotPaused if already running.
func (p *Pause) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return ErrNotPaused
	}
	p.paused = false
	return nil
}
