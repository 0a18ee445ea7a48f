package command

import (
	"testing"
)

func TestNewCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()
	if registry == nil {
		t.Fatal("Expected non-nil registry")
	}
	if registry.factories == nil {
		t.Fatal("Expected non-nil factories map")
	}
}

func TestCommandRegistry_Register(t *testing.T) {
	registry := NewCommandRegistry()

	// Test successful registration
	if err := registry.Register("ping", keywordOnly(Status{})); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test duplicate registration
	if err := registry.Register("ping", keywordOnly(Status{})); err == nil {
		t.Error("Expected error for duplicate registration")
	}

	// Test empty name
	if err := registry.Register("", keywordOnly(Status{})); err == nil {
		t.Error("Expected error for empty name")
	}

	// Test nil factory
	if err := registry.Register("nil", nil); err == nil {
		t.Error("Expected error for nil factory")
	}
}

func TestCommandRegistry_Create(t *testing.T) {
	registry := NewCommandRegistry()
	if err := registry.Register("ping", keywordOnly(Status{})); err != nil {
		t.Fatalf("Failed to register command: %v", err)
	}

	command, err := registry.Create("ping", nil)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if command == nil {
		t.Fatal("Expected non-nil command")
	}
	if command.Name() != "status" {
		t.Errorf("Expected command name 'status', got '%s'", command.Name())
	}

	if _, err = registry.Create("unknown", nil); err == nil {
		t.Error("Expected error for unknown command")
	}
}

func TestDefaultRegistries(t *testing.T) {
	for _, name := range []string{"get total", "get last total", "get all"} {
		if !UserRegistry.IsRegistered(name) {
			t.Errorf("Expected %q in UserRegistry", name)
		}
		if !AdminRegistry.IsRegistered(name) {
			t.Errorf("Expected %q in AdminRegistry", name)
		}
	}
	for _, name := range []string{"backup", "status", "add", "user"} {
		if UserRegistry.IsRegistered(name) {
			t.Errorf("Expected %q not to be in UserRegistry", name)
		}
		if !AdminRegistry.IsRegistered(name) {
			t.Errorf("Expected %q in AdminRegistry", name)
		}
	}
}
