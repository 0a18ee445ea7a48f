package command

import (
	"errors"
	"strings"

	"github.com/jo-hoe/kwhledger/internal/common"
	"github.com/shopspring/decimal"
)

// Parse maps message text onto a command of the caller's scope. Keywords
// match case-insensitively and exactly after trimming; commands that take
// arguments are the keyword, one space, then whitespace separated arguments.
// A non-nil error is always a *UsageError.
func Parse(text string, admin bool) (Command, error) {
	registry := UserRegistry
	if admin {
		registry = AdminRegistry
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	unknown := Unknown{Text: strings.TrimSpace(text), Admin: admin}
	if normalized == "" {
		return unknown, nil
	}

	name, args := normalized, []string(nil)
	if !registry.IsRegistered(name) {
		keyword, rest, found := strings.Cut(normalized, " ")
		if !found || !registry.IsRegistered(keyword) {
			return unknown, nil
		}
		name, args = keyword, strings.Fields(rest)
	}

	cmd, err := registry.Create(name, args)
	if errors.Is(err, errUnexpectedArguments) {
		return unknown, nil
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func keywordOnly(cmd Command) CommandFactory {
	return func(args []string) (Command, error) {
		if len(args) > 0 {
			return nil, errUnexpectedArguments
		}
		return cmd, nil
	}
}

func newManualAdd(args []string) (Command, error) {
	if len(args) != 2 {
		return nil, &UsageError{Command: "add", Usage: AddUsage, Err: errors.New("expected kWh and amount")}
	}
	quantity, err := decimal.NewFromString(args[0])
	if err != nil {
		return nil, &UsageError{Command: "add", Usage: AddUsage, Err: err}
	}
	amount, err := decimal.NewFromString(strings.TrimPrefix(args[1], "$"))
	if err != nil {
		return nil, &UsageError{Command: "add", Usage: AddUsage, Err: err}
	}
	if !quantity.IsPositive() || !amount.IsPositive() {
		return nil, &UsageError{Command: "add", Usage: AddUsage, Err: errors.New("values must be positive")}
	}
	return ManualAdd{Quantity: quantity, Amount: amount}, nil
}

func newUserHistory(args []string) (Command, error) {
	raw := strings.Join(args, "")
	if raw == "" {
		return nil, &UsageError{Command: "user", Usage: UserArgUsage, Err: errors.New("missing phone number")}
	}
	sender := common.NormalizePhone(raw)
	if sender == "+" {
		return nil, &UsageError{Command: "user", Usage: UserArgUsage, Err: errors.New("phone number has no digits")}
	}
	return UserHistory{Sender: sender}, nil
}
