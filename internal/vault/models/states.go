package models

import (
	"fmt"

	dErrors "satsvault/pkg/domain-errors"
)

// State is a lifecycle state. The valid set depends on the record kind.
type State string

// Mint quote lifecycle: UNPAID -> PAID -> ISSUED, one step at a time.
// Melt quote lifecycle: UNPAID -> PENDING -> {PAID, UNKNOWN, FAILED},
// with UNKNOWN resolving to PAID or FAILED out of band.
// Proof lifecycle: UNSPENT -> RESERVED -> PENDING_SPENT -> SPENT, with
// RESERVED releasable back to UNSPENT. PENDING is a legacy in-flight state
// kept for compatibility; it resolves to SPENT or UNSPENT.
const (
	StateUnpaid       State = "UNPAID"
	StatePaid         State = "PAID"
	StateIssued       State = "ISSUED"
	StatePending      State = "PENDING"
	StateUnknown      State = "UNKNOWN"
	StateFailed       State = "FAILED"
	StateUnspent      State = "UNSPENT"
	StateReserved     State = "RESERVED"
	StatePendingSpent State = "PENDING_SPENT"
	StateSpent        State = "SPENT"
)

// transitions is the closed set of legal lifecycle moves per kind. A state
// mapped to an empty set is terminal. Anything not listed is illegal.
var transitions = map[Kind]map[State]map[State]struct{}{
	KindMintQuote: {
		StateUnpaid: {StatePaid: {}},
		StatePaid:   {StateIssued: {}},
		StateIssued: {},
	},
	KindMeltQuote: {
		StateUnpaid:  {StatePending: {}},
		StatePending: {StatePaid: {}, StateUnknown: {}, StateFailed: {}},
		StateUnknown: {StatePaid: {}, StateFailed: {}},
		StatePaid:    {},
		StateFailed:  {},
	},
	KindProof: {
		StateUnspent:      {StateReserved: {}},
		StateReserved:     {StatePendingSpent: {}, StateUnspent: {}},
		StatePendingSpent: {StateSpent: {}},
		StatePending:      {StateSpent: {}, StateUnspent: {}},
		StateSpent:        {},
	},
}

// InitialState returns the state stamped on newly created records of a kind.
func InitialState(kind Kind) State {
	switch kind {
	case KindMintQuote, KindMeltQuote:
		return StateUnpaid
	case KindProof:
		return StateUnspent
	default:
		return ""
	}
}

// ValidState reports whether the state belongs to the kind's lifecycle.
func ValidState(kind Kind, state State) bool {
	_, ok := transitions[kind][state]
	return ok
}

// StatesFor returns the full state set of a kind. Used for exhaustive checks
// and for validating list queries.
func StatesFor(kind Kind) []State {
	table, ok := transitions[kind]
	if !ok {
		return nil
	}
	states := make([]State, 0, len(table))
	for s := range table {
		states = append(states, s)
	}
	return states
}

// CanTransition reports whether target is reachable from current in one step.
func CanTransition(kind Kind, current, target State) bool {
	_, ok := transitions[kind][current][target]
	return ok
}

// IsTerminal reports whether no further transitions leave the state.
func IsTerminal(kind Kind, state State) bool {
	return len(transitions[kind][state]) == 0
}

// Transition validates a requested lifecycle move. Re-requesting the current
// state is an idempotent no-op (noop=true, the stored record must not change,
// UpdatedAt included). A legal move returns the target; anything else fails
// with CodeIllegalTransition and the caller must leave the record untouched.
func Transition(kind Kind, current, target State) (next State, noop bool, err error) {
	if kind == KindTransaction {
		return "", false, dErrors.New(dErrors.CodeIllegalTransition, "transactions are immutable ledger entries")
	}
	if !ValidState(kind, current) {
		return "", false, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("state %s is not valid for %s", current, kind))
	}
	if !ValidState(kind, target) {
		return "", false, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("state %s is not valid for %s", target, kind))
	}
	if current == target {
		return current, true, nil
	}
	if !CanTransition(kind, current, target) {
		return "", false, dErrors.New(dErrors.CodeIllegalTransition,
			fmt.Sprintf("%s cannot move from %s to %s", kind, current, target))
	}
	return target, false, nil
}
