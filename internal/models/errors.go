package models

import (
	"errors"
	"fmt"
)

// ErrPopulationInProgress is returned when a populate or clear is already
// running for the same user.
var ErrPopulationInProgress = errors.New("population already in progress for user")

// ValidationError represents an invalid request value
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// ConfigurationError marks a device whose solar configuration is missing or
// invalid. Callers skip the device rather than failing the batch.
type ConfigurationError struct {
	DeviceID string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("device %s has no valid solar configuration: %s", e.DeviceID, e.Reason)
}

func (e *ConfigurationError) IsTransient() bool {
	return false
}

// StoreError wraps a failed read or write against the datastore.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsTransient reports true; a store failure may succeed on a later attempt.
func (e *StoreError) IsTransient() bool {
	return true
}
