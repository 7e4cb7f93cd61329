package cli

import "fmt"

// ConfigError represents a configuration problem surfaced by a command.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents a failure during command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// FlagError represents a flag value that could not be parsed.
type FlagError struct {
	Flag    string
	Value   string
	Message string
}

func (e *FlagError) Error() string {
	return fmt.Sprintf("invalid --%s value %q: %s", e.Flag, e.Value, e.Message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// NewFlagError creates a new FlagError.
func NewFlagError(flag, value, message string) *FlagError {
	return &FlagError{
		Flag:    flag,
		Value:   value,
		Message: message,
	}
}
