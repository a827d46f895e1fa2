// =============================================================================
// Store Sale Reconciliation - Status Channel
// =============================================================================
//
// The status channel is the operator-facing outcome of a run: one JSON object
// per line on stdout, for example
//
//   {"severity":"error","message":"Missing 'TID' column(s) in SBI CC.csv."}
//   {"severity":"success","message":"Reconciliation for 2023-12-28 written to ..."}
//
// Diagnostic logging goes to stderr through zap and never mixes with it.
//
// =============================================================================

package status

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Severity is the outcome class of a notification.
type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// Message is one status notification.
type Message struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Notifier writes status messages as JSON lines. It is safe for concurrent use.
type Notifier struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNotifier returns a Notifier writing to w.
func NewNotifier(w io.Writer) *Notifier {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Notifier{enc: enc}
}

// Error emits an error notification.
func (n *Notifier) Error(message string) error {
	return n.emit(Message{Severity: SeverityError, Message: message})
}

// Success emits a success notification.
func (n *Notifier) Success(message string) error {
	return n.emit(Message{Severity: SeveritySuccess, Message: message})
}

func (n *Notifier) emit(msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}
