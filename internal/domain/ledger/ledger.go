// Package ledger defines the change ledger: an append-only audit record
// of every entity mutation within a tenant.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action identifies the kind of mutation recorded.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entry is a single immutable ledger row. Changes holds the state
// snapshot: the new state for a create, {"old":...,"new":...} for an
// update, and the final state for a delete.
type Entry struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	ModelType string          `json:"model_type"`
	ModelID   string          `json:"model_id"`
	Action    Action          `json:"action"`
	UserID    string          `json:"user_id"`
	Changes   json.RawMessage `json:"changes"`
	Processed bool            `json:"processed"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter narrows a ledger listing. Zero fields match everything.
type Filter struct {
	ModelType string
	ModelID   string
	Action    string
	Limit     int
}

// updateSnapshot is the wire shape of an update entry's Changes field.
type updateSnapshot struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Created builds a create entry whose Changes is the new state.
func Created(tenantID, modelType, modelID, userID string, state any) (*Entry, error) {
	return build(tenantID, modelType, modelID, userID, ActionCreate, state)
}

// Updated builds an update entry whose Changes carries both the prior
// and the new state.
func Updated(tenantID, modelType, modelID, userID string, oldState, newState any) (*Entry, error) {
	return build(tenantID, modelType, modelID, userID, ActionUpdate, updateSnapshot{Old: oldState, New: newState})
}

// Deleted builds a delete entry whose Changes is the final state.
func Deleted(tenantID, modelType, modelID, userID string, state any) (*Entry, error) {
	return build(tenantID, modelType, modelID, userID, ActionDelete, state)
}

func build(tenantID, modelType, modelID, userID string, action Action, snapshot any) (*Entry, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger snapshot for %s %s: %w", modelType, modelID, err)
	}
	return &Entry{
		TenantID:  tenantID,
		ModelType: modelType,
		ModelID:   modelID,
		Action:    action,
		UserID:    userID,
		Changes:   raw,
	}, nil
}
