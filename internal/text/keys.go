// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package text defines the abstract text keys carried by pipeline events and
// a default catalog that resolves them to displayable strings.
package text

// Key identifies a user-facing message. Events carry keys, never literal text.
type Key string

const (
	OperationStatusInitializeSession            Key = "OperationStatus_InitializeSession"
	OperationStatusInitializeWorkspace          Key = "OperationStatus_InitializeWorkspace"
	OperationStatusRevertWorkspace              Key = "OperationStatus_RevertWorkspace"
	OperationStatusValidateConfiguration        Key = "OperationStatus_ValidateConfiguration"
	OperationStatusValidateRemoteSessionPolicy  Key = "OperationStatus_ValidateRemoteSessionPolicy"
	OperationStatusValidateVirtualMachinePolicy Key = "OperationStatus_ValidateVirtualMachinePolicy"
	MessageBoxRemoteSessionDetected             Key = "MessageBox_RemoteSessionDetected"
	MessageBoxRemoteSessionDetectedTitle        Key = "MessageBox_RemoteSessionDetectedTitle"
	MessageBoxVirtualMachineDetected            Key = "MessageBox_VirtualMachineDetected"
	MessageBoxVirtualMachineDetectedTitle       Key = "MessageBox_VirtualMachineDetectedTitle"
)

// String implements fmt.Stringer.
func (k Key) String() string { return string(k) }
