// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"github.com/khangzxrr/SafeExamBrowser/internal/detect"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
)

// NewSessionSequence builds the runtime's session sequence: configuration,
// identifiers, workspace, then the environment policy checks.
func NewSessionSequence(virtualMachine, remoteSession detect.Detector) *operation.Sequence {
	return operation.MustSequence(
		NewConfigurationOperation(),
		NewSessionIdentifiersOperation(),
		NewWorkspaceOperation(),
		NewVirtualMachineOperation(virtualMachine),
		NewRemoteSessionOperation(remoteSession),
	)
}
