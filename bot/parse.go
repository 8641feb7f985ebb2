package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Natts95/line-checkin-bot/attendance"
)

// =============================================================================
// COMMAND PARSING
// =============================================================================

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdWhoami
	cmdCheckin
	cmdWork
	cmdAdvance
	cmdRepayment
	cmdAddEmployee
	cmdRemoveEmployee
	cmdAddAdmin
	cmdRemoveAdmin
	cmdSetRate
	cmdSetDebt
	cmdOverride
)

// parsedCommand is the shape-validated form of a command. Shape errors
// (ValidationError territory) are returned as *parseError with the exact
// reply text; policy checks happen later in the handlers.
type parsedCommand struct {
	kind     commandKind
	workType attendance.WorkType
	amount   decimal.Decimal
	targetID string
	name     string
}

type parseError struct {
	reply string
}

func (e *parseError) Error() string { return e.reply }

func badShape(format string, args ...any) *parseError {
	return &parseError{reply: fmt.Sprintf(format, args...)}
}

// parseCommand recognizes the command vocabulary, case-insensitively.
// advanceKw and repayKw are the configured transaction keywords.
func parseCommand(text, advanceKw, repayKw string) (parsedCommand, error) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	fields := strings.Fields(lowered)
	if len(fields) == 0 {
		return parsedCommand{kind: cmdUnknown}, nil
	}

	switch {
	case lowered == "whoami":
		return parsedCommand{kind: cmdWhoami}, nil

	case lowered == "checkin":
		return parsedCommand{kind: cmdCheckin}, nil

	case strings.HasPrefix(lowered, "work:"):
		wt, ok := attendance.ParseWorkType(strings.TrimPrefix(lowered, "work:"))
		if !ok {
			return parsedCommand{}, badShape("Unknown work type. Use work:full, work:half-morning, work:half-afternoon or work:off.")
		}
		return parsedCommand{kind: cmdWork, workType: wt}, nil

	case fields[0] == advanceKw:
		amount, err := parseAmount(fields[1:], advanceKw)
		if err != nil {
			return parsedCommand{}, err
		}
		return parsedCommand{kind: cmdAdvance, amount: amount}, nil

	case fields[0] == repayKw:
		amount, err := parseAmount(fields[1:], repayKw)
		if err != nil {
			return parsedCommand{}, err
		}
		return parsedCommand{kind: cmdRepayment, amount: amount}, nil

	case fields[0] == "add" || fields[0] == "remove" || fields[0] == "set":
		return parseAdmin(text, fields)

	case fields[0] == "override":
		// override <id> <work-type>
		if len(fields) != 3 {
			return parsedCommand{}, badShape("Usage: override <id> <full|half-morning|half-afternoon|off>")
		}
		wt, ok := attendance.ParseWorkType(fields[2])
		if !ok {
			return parsedCommand{}, badShape("Unknown work type %q.", fields[2])
		}
		return parsedCommand{kind: cmdOverride, targetID: originalField(text, 1), workType: wt}, nil
	}

	return parsedCommand{kind: cmdUnknown}, nil
}

func parseAdmin(original string, fields []string) (parsedCommand, error) {
	if len(fields) < 2 {
		return parsedCommand{kind: cmdUnknown}, nil
	}

	verb, noun := fields[0], fields[1]
	switch {
	case verb == "add" && noun == "employee":
		return parseAddPerson(original, fields, cmdAddEmployee, "add employee <id> <name>")
	case verb == "add" && noun == "admin":
		return parseAddPerson(original, fields, cmdAddAdmin, "add admin <id> <name>")
	case verb == "remove" && noun == "employee":
		return parseRemovePerson(original, fields, cmdRemoveEmployee, "remove employee <id>")
	case verb == "remove" && noun == "admin":
		return parseRemovePerson(original, fields, cmdRemoveAdmin, "remove admin <id>")
	case verb == "set" && noun == "rate":
		return parseSetAmount(original, fields, cmdSetRate, "set rate <id> <amount>")
	case verb == "set" && noun == "debt":
		return parseSetAmount(original, fields, cmdSetDebt, "set debt <id> <amount>")
	}
	return parsedCommand{kind: cmdUnknown}, nil
}

func parseAddPerson(original string, fields []string, kind commandKind, usage string) (parsedCommand, error) {
	if len(fields) < 4 {
		return parsedCommand{}, badShape("Usage: %s", usage)
	}
	// The id and name keep their original casing; only keywords are folded.
	originals := strings.Fields(strings.TrimSpace(original))
	return parsedCommand{
		kind:     kind,
		targetID: originals[2],
		name:     strings.Join(originals[3:], " "),
	}, nil
}

func parseRemovePerson(original string, fields []string, kind commandKind, usage string) (parsedCommand, error) {
	if len(fields) != 3 {
		return parsedCommand{}, badShape("Usage: %s", usage)
	}
	return parsedCommand{kind: kind, targetID: originalField(original, 2)}, nil
}

func parseSetAmount(original string, fields []string, kind commandKind, usage string) (parsedCommand, error) {
	if len(fields) != 4 {
		return parsedCommand{}, badShape("Usage: %s", usage)
	}
	amount, err := decimal.NewFromString(fields[3])
	if err != nil {
		return parsedCommand{}, badShape("%q is not a number. Usage: %s", fields[3], usage)
	}
	if amount.IsNegative() {
		return parsedCommand{}, badShape("Amount may not be negative.")
	}
	return parsedCommand{kind: kind, targetID: originalField(original, 2), amount: amount}, nil
}

func parseAmount(rest []string, keyword string) (decimal.Decimal, error) {
	if len(rest) != 1 {
		return decimal.Zero, badShape("Usage: %s <amount>", keyword)
	}
	amount, err := decimal.NewFromString(rest[0])
	if err != nil {
		return decimal.Zero, badShape("%q is not a number. Usage: %s <amount>", rest[0], keyword)
	}
	return amount, nil
}

// originalField returns the i-th whitespace field of the untouched text,
// preserving its casing (ids are case-sensitive).
func originalField(text string, i int) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}
