package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// ErrReentrantCall is returned when a state-changing operation is entered
// while another one is still executing on the same instance.
var ErrReentrantCall = errors.New("reentrant call")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// ReentrancyGuard is a scoped non-reentrancy flag. Operations that call out
// to untrusted collaborators before finishing their own state mutation hold
// the guard for the full duration of the call.
//
// The host executes operations serially, so the guard is not a lock; it only
// rejects nested calls back into the same instance.
type ReentrancyGuard struct {
	entered bool
}

// Enter acquires the guard and returns the release function. The release
// must run on every exit path of the protected operation.
func (g *ReentrancyGuard) Enter() (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	if g.entered {
		return nil, ErrReentrantCall
	}
	g.entered = true
	return func() { g.entered = false }, nil
}
