package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sluu99/sabbathtext-sub001/internal/clock"
	"github.com/sluu99/sabbathtext-sub001/internal/core"
)

// Memory is an in-process AccountStore for tests and local runs.
type Memory struct {
	clk clock.Clock

	mu      sync.Mutex
	byPhone map[string]*core.Account
	history map[string][]core.Message
	kv      map[string]string
}

func NewMemory(clk clock.Clock) *Memory {
	return &Memory{
		clk:     clk,
		byPhone: make(map[string]*core.Account),
		history: make(map[string][]core.Message),
		kv:      make(map[string]string),
	}
}

func (m *Memory) GetByPhone(_ context.Context, phone string) (*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.byPhone[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAccount(acct), nil
}

func (m *Memory) GetOrCreate(_ context.Context, phone string) (*core.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.byPhone[phone]; ok {
		return copyAccount(acct), false, nil
	}
	now := m.clk.Now()
	acct := &core.Account{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		Status:      core.StatusBrandNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.byPhone[phone] = acct
	return copyAccount(acct), true, nil
}

func (m *Memory) Update(_ context.Context, acct *core.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byPhone[acct.PhoneNumber]
	if !ok || cur.ID != acct.ID {
		return ErrNotFound
	}
	up := copyAccount(acct)
	up.UpdatedAt = m.clk.Now()
	m.byPhone[acct.PhoneNumber] = up
	return nil
}

func (m *Memory) RecordMessage(_ context.Context, accountID string, msg *core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[accountID] = append(m.history[accountID], *msg)
	return nil
}

// History returns the recorded messages for an account. Test helper.
func (m *Memory) History(accountID string) []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Message, len(m.history[accountID]))
	copy(out, m.history[accountID])
	return out
}

func (m *Memory) GetKeyValue(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) PutKeyValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func copyAccount(a *core.Account) *core.Account {
	cp := *a
	cp.RecentlySentVerses = append([]string(nil), a.RecentlySentVerses...)
	return &cp
}
