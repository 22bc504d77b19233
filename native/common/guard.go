package common

import (
	"errors"
	"sync"
)

var ErrModulePaused = errors.New("module paused")

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

// StaticPauseView is a mutable, in-process PauseView shared across every
// native module's Guard call, matching the single-breaker-per-module shape
// spec.md §5 describes ("only configured owners may call mutating admin
// ops" — Pause/Unpause are one such admin op per module).
type StaticPauseView struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewStaticPauseView constructs a PauseView with every module unpaused.
func NewStaticPauseView() *StaticPauseView {
	return &StaticPauseView{paused: make(map[string]bool)}
}

// IsPaused implements PauseView.
func (v *StaticPauseView) IsPaused(module string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.paused[module]
}

// Pause halts every Guard call against module until Unpause is called.
func (v *StaticPauseView) Pause(module string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused[module] = true
}

// Unpause lifts a prior Pause.
func (v *StaticPauseView) Unpause(module string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused[module] = false
}
