package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidRule = errors.New("invalid routine rule")
)

// VaultError represents an error from the note vault or its data files
type VaultError struct {
	Op   string // Operation: "scan", "read", "write", "rename", etc.
	Path string // Optional: file involved
	Err  error  // Underlying error
}

func (e *VaultError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("vault %s [%s]: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("vault %s: %v", e.Op, e.Err)
}

func (e *VaultError) Unwrap() error {
	return e.Err
}

// AliasError represents an error from alias-chain persistence
type AliasError struct {
	Op   string
	Name string
	Err  error
}

func (e *AliasError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("alias %s [%s]: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("alias %s: %v", e.Op, e.Err)
}

func (e *AliasError) Unwrap() error {
	return e.Err
}
