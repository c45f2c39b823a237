package action

import (
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tansive/sessionactions/internal/common/apperrors"
)

// Command names carried in the "command" field of a descriptor.
const (
	StartSessionCommandName = "startSession"
	StopSessionCommandName  = "stopSession"
)

var commandNames = []string{StartSessionCommandName, StopSessionCommandName}

// Descriptor is the command object an action hands back to the orchestrator.
type Descriptor interface {
	CommandName() string
}

// StartSessionCommand instructs the orchestrator to start a session.
type StartSessionCommand struct {
	Command   string `json:"command" mapstructure:"command" validate:"commandName"`
	SessionID int64  `json:"sessionId" mapstructure:"sessionId"`
	Strategy  string `json:"strategy" mapstructure:"strategy"`
}

func (c *StartSessionCommand) CommandName() string { return c.Command }

// StopSessionCommand instructs the orchestrator to stop a session.
type StopSessionCommand struct {
	Command   string `json:"command" mapstructure:"command" validate:"commandName"`
	SessionID int64  `json:"sessionId" mapstructure:"sessionId"`
}

func (c *StopSessionCommand) CommandName() string { return c.Command }

var (
	descriptorValidator     *validator.Validate
	descriptorValidatorOnce sync.Once
)

// V returns the validator used for descriptors.
func V() *validator.Validate {
	descriptorValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		if err := v.RegisterValidation("commandName", commandNameValidator); err != nil {
			panic(err)
		}
		descriptorValidator = v
	})
	return descriptorValidator
}

func commandNameValidator(fl validator.FieldLevel) bool {
	return slices.Contains(commandNames, fl.Field().String())
}

func validateDescriptor(d Descriptor) apperrors.Error {
	if err := V().Struct(d); err != nil {
		return ErrInvalidDescriptor.Err(err)
	}
	return nil
}
