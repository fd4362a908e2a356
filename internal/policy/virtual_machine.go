// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"context"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/detect"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
)

// NameVirtualMachine is the operation name of the virtual machine check.
const NameVirtualMachine = "virtual-machine-policy"

// VirtualMachineOperation refuses, allows or asks about sessions running
// inside a virtual machine.
type VirtualMachineOperation struct {
	check check
}

func NewVirtualMachineOperation(detector detect.Detector) *VirtualMachineOperation {
	return &VirtualMachineOperation{check: check{
		subject:  "virtual machine",
		status:   text.OperationStatusValidateVirtualMachinePolicy,
		message:  text.MessageBoxVirtualMachineDetected,
		title:    text.MessageBoxVirtualMachineDetectedTitle,
		detector: detector,
		policyOf: func(sc *session.Context) config.Policy { return sc.Settings.VirtualMachinePolicy },
		logger:   log.WithComponent(NameVirtualMachine),
	}}
}

func (o *VirtualMachineOperation) Name() string { return NameVirtualMachine }

func (o *VirtualMachineOperation) Perform(ctx context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	return o.check.validate(ctx, sc, emit)
}

func (o *VirtualMachineOperation) Repeat(ctx context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	return o.check.validate(ctx, sc, emit)
}

func (o *VirtualMachineOperation) Revert(context.Context, *session.Context, operation.Emitter) operation.Result {
	return operation.Success
}
