package core

import (
	"errors"
	"sync"

	"pwmlink/protocol"
)

var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler executes a decoded command and appends its reply to
// reply. On error the caller discards reply and answers with an error
// line instead.
type CommandHandler func(cmd protocol.Command, reply []byte) ([]byte, error)

// Command is one entry of the command table
type Command struct {
	Kind    protocol.Kind
	Name    string
	Handler CommandHandler
}

// CommandRegistry maps command kinds to their handlers
type CommandRegistry struct {
	mu       sync.RWMutex
	commands [protocol.KindCount]*Command
	count    int
}

// NewCommandRegistry creates an empty command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{}
}

// Register installs handler for kind, replacing any earlier handler.
// It returns false for KindInvalid or an out-of-range kind.
func (r *CommandRegistry) Register(kind protocol.Kind, handler CommandHandler) bool {
	if kind == protocol.KindInvalid || int(kind) >= protocol.KindCount {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commands[kind] == nil {
		r.count++
	}
	r.commands[kind] = &Command{
		Kind:    kind,
		Name:    kind.String(),
		Handler: handler,
	}
	return true
}

// GetCommand retrieves the entry for kind
func (r *CommandRegistry) GetCommand(kind protocol.Kind) (*Command, bool) {
	if int(kind) >= protocol.KindCount {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd := r.commands[kind]
	return cmd, cmd != nil
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Dispatch calls the handler registered for cmd.Kind
func (r *CommandRegistry) Dispatch(cmd protocol.Command, reply []byte) ([]byte, error) {
	entry, ok := r.GetCommand(cmd.Kind)
	if !ok || entry.Handler == nil {
		return reply, ErrUnknownCommand
	}
	return entry.Handler(cmd, reply)
}

// Names lists the registered commands in kind order
func (r *CommandRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, r.count)
	for _, cmd := range r.commands {
		if cmd != nil {
			names = append(names, cmd.Name)
		}
	}
	return names
}
