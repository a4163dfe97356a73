package entity

import "strings"

// Status is the lifecycle state of a pedido. The wire values are the
// Spanish names shared with the other kitchen modules.
type Status string

const (
	StatusCreated       Status = "CREADO"
	StatusUrgent        Status = "URGENTE"
	StatusInPreparation Status = "EN_PREPARACION"
	StatusReady         Status = "LISTO"
	StatusDelivered     Status = "ENTREGADO"
)

// transitions is the single source of truth for the order lifecycle.
// ENTREGADO is terminal. Built once, never mutated.
var transitions = map[Status][]Status{
	StatusCreated:       {StatusUrgent, StatusInPreparation},
	StatusUrgent:        {StatusInPreparation},
	StatusInPreparation: {StatusReady},
	StatusReady:         {StatusDelivered},
	StatusDelivered:     {},
}

// ParseStatus normalises raw input (case, surrounding space) into a Status.
// The second return value reports whether the input names a known state.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := transitions[s]
	return s, ok
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a legal step
// in the lifecycle. Unknown states on either side are never legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	allowed, ok := transitions[s]
	return ok && len(allowed) == 0
}

func (s Status) String() string {
	return string(s)
}
