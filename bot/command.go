/*
Package bot turns inbound chat commands into ledger operations and replies.

PURPOSE:
  One Command in, at most one Reply out. The dispatcher resolves the sender
  against the roster, validates against the clock and the ledgers, applies
  the mutation, appends the durable record, and renders a specific reply.
  Silent failure is never acceptable: every rejected command says why.

COMMANDS (case-insensitive):
  whoami
  checkin
  work:<full|half-morning|half-afternoon|off>
  <advance-keyword> <amount>
  <repayment-keyword> <amount>
  add employee <id> <name...>      (admin)
  remove employee <id>             (admin)
  add admin <id> <name...>         (admin)
  remove admin <id>                (admin)
  set rate <id> <amount>           (admin)
  set debt <id> <amount>           (admin)
  override <id> <work-type>        (admin, replaces today's entry)

SEE ALSO:
  - line: adapts LINE webhook events to Commands and Replies to messages
*/
package bot

import (
	"time"
)

// Command is one inbound event from the messaging platform.
type Command struct {
	// PersonID is the platform's opaque sender id.
	PersonID string

	// DisplayName is the sender's profile name, used for auto-registration.
	DisplayName string

	// Text is the raw message text.
	Text string

	// Now is the receive timestamp, already in the system timezone.
	Now time.Time
}

// Reply is the response payload for one command: plain text, or a menu with
// labeled choices that send back their Text when tapped.
type Reply struct {
	Text string
	Menu *Menu
}

// Menu is a small button template (the check-in dialogue).
type Menu struct {
	Title   string
	Options []MenuOption
}

type MenuOption struct {
	Label string
	Text  string
}

func textReply(s string) Reply { return Reply{Text: s} }
