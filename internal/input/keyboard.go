// Package input implements the Apple II keyboard latch.
package input

import (
	"log"
	"sync"
)

// Strobe is bit 7 of the keyboard latch; it is set while a key is waiting.
const Strobe = 0x80

// Apple II key codes for keys that have no printable rune.
const (
	KeyReturn    uint8 = 0x0D
	KeyLeft      uint8 = 0x08
	KeyRight     uint8 = 0x15
	KeyUp        uint8 = 0x0B
	KeyDown      uint8 = 0x0A
	KeyTab       uint8 = 0x09
	KeyEscape    uint8 = 0x1B
	KeyBackspace uint8 = 0x08
	KeyDelete    uint8 = 0x7F
)

// maxQueue bounds type-ahead so a huge paste cannot grow without limit.
const maxQueue = 4096

// Keyboard is the $C000/$C010 latch. Host goroutines feed it keys while the
// CPU goroutine reads it, so all state is guarded.
type Keyboard struct {
	mu    sync.Mutex
	latch uint8
	queue []uint8

	presses      uint64
	debugEnabled bool
}

// NewKeyboard creates an empty keyboard.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// Press latches a key code with the strobe set. A key pressed while typed
// text is still queued goes to the back of the queue.
func (k *Keyboard) Press(code uint8) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.presses++
	if len(k.queue) > 0 {
		k.enqueue(code)
		return
	}
	k.latch = code&0x7F | Strobe

	if k.debugEnabled {
		log.Printf("[KEYBOARD] press $%02X", code&0x7F)
	}
}

// Type queues text; each character is latched once the program has cleared
// the strobe for the previous one. Runes without an Apple II code are
// dropped. It returns the number of keys accepted.
func (k *Keyboard) Type(text string) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	accepted := 0
	for _, r := range text {
		code, ok := Translate(r)
		if !ok {
			continue
		}
		if !k.enqueue(code) {
			break
		}
		accepted++
	}
	k.advance()
	return accepted
}

func (k *Keyboard) enqueue(code uint8) bool {
	if len(k.queue) >= maxQueue {
		return false
	}
	k.queue = append(k.queue, code&0x7F)
	return true
}

// advance latches the next queued key if the latch is free.
func (k *Keyboard) advance() {
	if k.latch&Strobe != 0 || len(k.queue) == 0 {
		return
	}
	k.latch = k.queue[0] | Strobe
	k.queue = k.queue[1:]
}

// Data returns the latch as seen at $C000.
func (k *Keyboard) Data() uint8 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.latch
}

// ClearStrobe handles an access to $C010: it clears bit 7 and returns the
// latch as it now reads. The next queued key, if any, is latched afterwards.
func (k *Keyboard) ClearStrobe() uint8 {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.latch &^= Strobe
	v := k.latch
	k.advance()
	return v
}

// Restore sets the latch directly and drops queued keys; it is used when
// loading a saved machine state.
func (k *Keyboard) Restore(latch uint8) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.latch = latch
	k.queue = nil
}

// Pending reports how many typed keys are still queued.
func (k *Keyboard) Pending() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.queue)
}

// Presses returns the number of Press calls since creation.
func (k *Keyboard) Presses() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.presses
}

// Reset clears the latch and drops queued keys.
func (k *Keyboard) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.latch = 0
	k.queue = nil
}

// EnableDebug turns on per-key logging.
func (k *Keyboard) EnableDebug(enable bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.debugEnabled = enable
}
