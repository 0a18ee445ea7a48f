package command

import (
	"fmt"
)

// CommandRegistry maps command keywords to their factories
type CommandRegistry struct {
	factories map[string]CommandFactory
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		factories: make(map[string]CommandFactory),
	}
}

// Register adds a command factory to the registry
func (r *CommandRegistry) Register(name string, factory CommandFactory) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("command factory cannot be nil")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("command %s is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a command by name with the given arguments
func (r *CommandRegistry) Create(name string, args []string) (Command, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown command: %s", name)
	}
	return factory(args)
}

// IsRegistered checks if a command with the given name is registered
func (r *CommandRegistry) IsRegistered(name string) bool {
	_, exists := r.factories[name]
	return exists
}

// UserRegistry holds the commands every allow-listed sender may use.
var UserRegistry = NewCommandRegistry()

// AdminRegistry holds the user commands plus the administrator commands.
var AdminRegistry = NewCommandRegistry()

func mustRegister(registry *CommandRegistry, name string, factory CommandFactory) {
	if err := registry.Register(name, factory); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", name, err))
	}
}

func init() {
	for _, registry := range []*CommandRegistry{UserRegistry, AdminRegistry} {
		mustRegister(registry, "get total", keywordOnly(GetTotal{}))
		mustRegister(registry, "get last total", keywordOnly(GetLastTotal{}))
		mustRegister(registry, "get all", keywordOnly(GetAll{}))
	}
	mustRegister(AdminRegistry, "backup", keywordOnly(Backup{}))
	mustRegister(AdminRegistry, "status", keywordOnly(Status{}))
	mustRegister(AdminRegistry, "add", newManualAdd)
	mustRegister(AdminRegistry, "user", newUserHistory)
}
