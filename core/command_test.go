package core

import (
	"errors"
	"testing"

	"pwmlink/protocol"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	handler := func(cmd protocol.Command, reply []byte) ([]byte, error) {
		called = true
		return protocol.AppendSuccess(reply), nil
	}

	if !registry.Register(protocol.KindPWMOn, handler) {
		t.Fatal("Register rejected a valid kind")
	}

	cmd, ok := registry.GetCommand(protocol.KindPWMOn)
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Name != "pwm_on" {
		t.Errorf("Expected command name 'pwm_on', got '%s'", cmd.Name)
	}

	reply, err := registry.Dispatch(protocol.PWMOn(), nil)
	if err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("Command handler was not called")
	}
	if string(reply) != "S\n" {
		t.Errorf("Expected success reply, got %q", reply)
	}

	// Unregistered kind
	if _, err := registry.Dispatch(protocol.PWMOff(), nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
}

func TestCommandRegistryRejectsInvalidKinds(t *testing.T) {
	registry := NewCommandRegistry()
	noop := func(cmd protocol.Command, reply []byte) ([]byte, error) { return reply, nil }

	if registry.Register(protocol.KindInvalid, noop) {
		t.Error("KindInvalid should not register")
	}
	if registry.Register(protocol.Kind(200), noop) {
		t.Error("Out of range kind should not register")
	}
	if registry.Count() != 0 {
		t.Errorf("Expected empty registry, got %d", registry.Count())
	}
	if _, ok := registry.GetCommand(protocol.Kind(200)); ok {
		t.Error("Out of range lookup should fail")
	}
}

func TestCommandRegistryReplace(t *testing.T) {
	registry := NewCommandRegistry()

	registry.Register(protocol.KindGetTime, func(cmd protocol.Command, reply []byte) ([]byte, error) {
		return protocol.AppendTime(reply, 1), nil
	})
	registry.Register(protocol.KindGetTime, func(cmd protocol.Command, reply []byte) ([]byte, error) {
		return protocol.AppendTime(reply, 2), nil
	})

	if registry.Count() != 1 {
		t.Errorf("Replacing a handler should not grow the table, got %d", registry.Count())
	}
	reply, _ := registry.Dispatch(protocol.GetTime(), nil)
	if string(reply) != "T2\n" {
		t.Errorf("Expected the later handler to win, got %q", reply)
	}
}

func TestDeviceCommandTable(t *testing.T) {
	d := newTestDevice(t).dev

	names := d.Commands().Names()
	expected := []string{
		"set_gpio", "clear_gpio", "pwm_on", "pwm_off",
		"pwm_duty", "pwm_frequency", "get_time", "get_status",
	}
	if len(names) != len(expected) {
		t.Fatalf("Expected %d commands, got %v", len(expected), names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Command %d: expected %s, got %s", i, expected[i], names[i])
		}
	}
}
