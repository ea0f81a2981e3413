package fsm

import (
	"context"
	"sync"

	"github.com/looplab/fsm"
)

// HoldStateMachine guards the lifecycle of a per-order reservation hold.
type HoldStateMachine struct {
	fsm *fsm.FSM
	mu  sync.Mutex
}

func NewHoldStateMachine() *HoldStateMachine {
	hsm := &HoldStateMachine{}
	hsm.fsm = fsm.NewFSM(
		HoldStateHeld,
		fsm.Events{
			{Name: HoldEventCommit, Src: []string{HoldStateHeld}, Dst: HoldStateCommitted},
			{Name: HoldEventRelease, Src: []string{HoldStateHeld}, Dst: HoldStateReleased},
		},
		fsm.Callbacks{},
	)
	return hsm
}

func (hsm *HoldStateMachine) Current() string {
	hsm.mu.Lock()
	defer hsm.mu.Unlock()
	return hsm.fsm.Current()
}

func (hsm *HoldStateMachine) CanCommit() bool {
	hsm.mu.Lock()
	defer hsm.mu.Unlock()
	return hsm.fsm.Can(HoldEventCommit)
}

func (hsm *HoldStateMachine) CanRelease() bool {
	hsm.mu.Lock()
	defer hsm.mu.Unlock()
	return hsm.fsm.Can(HoldEventRelease)
}

func (hsm *HoldStateMachine) Event(ctx context.Context, event string) error {
	hsm.mu.Lock()
	defer hsm.mu.Unlock()
	return hsm.fsm.Event(ctx, event)
}
