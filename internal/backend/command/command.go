// Package command parses inbound text into a closed set of ledger commands.
// Execution lives with the ledger; this package only recognizes intent.
package command

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Command is implemented only by the variants below.
type Command interface {
	Name() string
	isCommand()
}

// CommandFactory creates a command from the arguments following its keyword.
type CommandFactory func(args []string) (Command, error)

// GetTotal asks for the caller's current billing period total.
type GetTotal struct{}

// GetLastTotal asks for the caller's previous calendar month total.
type GetLastTotal struct{}

// GetAll asks for every period total of the caller plus a grand total.
type GetAll struct{}

// Backup archives the store. Administrator only.
type Backup struct{}

// Status lists every sender's current period total. Administrator only.
type Status struct{}

// ManualAdd records an entry for the administrator's entry identity.
type ManualAdd struct {
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// UserHistory lists the full history of Sender, already normalized.
type UserHistory struct {
	Sender string
}

// Unknown is any text that matched no command for the caller's scope.
type Unknown struct {
	Text  string
	Admin bool
}

func (GetTotal) Name() string     { return "get total" }
func (GetLastTotal) Name() string { return "get last total" }
func (GetAll) Name() string       { return "get all" }
func (Backup) Name() string       { return "backup" }
func (Status) Name() string       { return "status" }
func (ManualAdd) Name() string    { return "add" }
func (UserHistory) Name() string  { return "user" }
func (Unknown) Name() string      { return "unknown" }

func (GetTotal) isCommand()     {}
func (GetLastTotal) isCommand() {}
func (GetAll) isCommand()       {}
func (Backup) isCommand()       {}
func (Status) isCommand()       {}
func (ManualAdd) isCommand()    {}
func (UserHistory) isCommand()  {}
func (Unknown) isCommand()      {}

// errUnexpectedArguments marks a keyword-only command followed by extra text;
// the parser treats such input as unknown.
var errUnexpectedArguments = errors.New("unexpected arguments")

// UsageError is a malformed administrator command.
type UsageError struct {
	Command string
	Usage   string
	Err     error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s command: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("invalid %s command", e.Command)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

const (
	UserUsage    = "Unknown command. Available: 'get total', 'get last total', 'get all'"
	AdminUsage   = "Unknown admin command. Available: 'get total', 'get last total', 'get all', 'backup', 'add kWh amount', 'status', 'user [phone_number]'"
	AddUsage     = "Invalid format. Use: add kWh amount (e.g., add 34.9 12.95)"
	UserArgUsage = "Invalid format. Use: user [phone_number] (e.g., user +18175550100)"
)
