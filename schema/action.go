// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
)

// Action names an operation a client can request on a node.
type Action string

const (
	ActionClick          Action = "click"
	ActionFocus          Action = "focus"
	ActionBlur           Action = "blur"
	ActionCollapse       Action = "collapse"
	ActionExpand         Action = "expand"
	ActionIncrement      Action = "increment"
	ActionDecrement      Action = "decrement"
	ActionScrollIntoView Action = "scrollIntoView"
	ActionScrollToPoint  Action = "scrollToPoint"
	ActionSetValue       Action = "setValue"
	ActionCustom         Action = "customAction"
)

// ActionData is the optional payload accompanying an action request.
// At most one field is set, determined by the action: setValue carries
// Value, scrollToPoint carries ScrollTarget, increment/decrement may
// carry NumericValue, customAction carries CustomAction.
type ActionData struct {
	Value        string  `json:"value,omitempty"`
	NumericValue float64 `json:"numericValue,omitempty"`
	ScrollTarget *Point  `json:"scrollTarget,omitempty"`
	CustomAction int32   `json:"customAction,omitempty"`
}

// ActionRequest asks the application to perform an action on a node.
// Produced by clients, decoded by the service, and handed unmodified
// to the application's action handler.
type ActionRequest struct {
	Action Action      `json:"action"`
	Target NodeID      `json:"target"`
	Data   *ActionData `json:"data,omitempty"`
}

// ErrNoTarget is returned by Validate for a request without a target
// node.
var ErrNoTarget = errors.New("schema: action request has zero target")

// Validate checks that the request names an action and a target.
func (r *ActionRequest) Validate() error {
	if r.Action == "" {
		return fmt.Errorf("schema: action request for node %d has empty action", r.Target)
	}
	if r.Target == 0 {
		return ErrNoTarget
	}
	return nil
}
