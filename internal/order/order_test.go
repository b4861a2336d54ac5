package order

import "testing"

func TestLegalTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateOpen, StateSettling, true},
		{StateOpen, StateCancelled, true},
		{StateOpen, StateClosed, false},
		{StateSettling, StateClosed, true},
		{StateSettling, StateFailed, true},
		{StateSettling, StateOpen, false},
		{StateClosed, StateOpen, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestOrderTransitionRejectsIllegalMove(t *testing.T) {
	o := &Order{State: StateOpen}
	if err := o.Transition(StateClosed); err == nil {
		t.Fatalf("Transition: expected error moving straight from open to closed")
	}
	if o.State != StateOpen {
		t.Fatalf("Transition: state must not change on a rejected move")
	}
	if err := o.Transition(StateSettling); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if o.State != StateSettling {
		t.Fatalf("Transition: expected state settling, got %s", o.State)
	}
}
