// Package app provides save state functionality for the Apple II emulator.
package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goapple/internal/bus"
)

// StateVersion is written into every save file.
const StateVersion = "1.0"

// builtinROMName names save files taken while running the built-in monitor.
const builtinROMName = "monitor"

var (
	// ErrNoSaveState is returned when a slot holds no save file.
	ErrNoSaveState = errors.New("save state not found")
	// ErrWrongROM is returned when a save file was taken with another ROM.
	ErrWrongROM = errors.New("save state is for a different ROM")
)

// StateManager manages save states
type StateManager struct {
	saveDirectory string
	maxSlots      int
	initialized   bool
}

// SaveState represents a saved emulator state
type SaveState struct {
	// Metadata
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	ROMChecksum string    `json:"rom_checksum"`
	SlotNumber  int       `json:"slot_number"`
	Description string    `json:"description"`

	// Readable register summary; Machine is authoritative.
	CPUState bus.CPUState `json:"cpu_state"`

	// Machine holds registers, the full 64 KiB image (base64 encoded) and
	// the soft switches.
	Machine bus.State `json:"machine"`
}

// StateSlotInfo contains information about a save state slot
type StateSlotInfo struct {
	SlotNumber  int       `json:"slot_number"`
	Used        bool      `json:"used"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
}

// NewStateManager creates a new state manager
func NewStateManager(saveDirectory string, maxSlots int) *StateManager {
	if maxSlots <= 0 {
		maxSlots = 10
	}
	manager := &StateManager{
		saveDirectory: saveDirectory,
		maxSlots:      maxSlots,
	}

	if err := manager.initialize(); err != nil {
		log.Printf("[STATE] state manager initialization failed: %v", err)
	}

	return manager
}

// initialize creates the save directory
func (sm *StateManager) initialize() error {
	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	sm.initialized = true
	return nil
}

func (sm *StateManager) checkSlot(slot int) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}
	return nil
}

// SaveState saves the current machine state to a slot
func (sm *StateManager) SaveState(b *bus.Bus, slot int, romPath string) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("bus cannot be nil")
	}

	state := sm.capture(b, romPath)
	state.SlotNumber = slot
	state.Description = fmt.Sprintf("Slot %d %s", slot, state.Timestamp.Format("2006-01-02 15:04:05"))

	filePath := sm.getSlotFilePath(slot, romPath)
	if err := sm.saveToFile(state, filePath); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	log.Printf("[STATE] saved slot %d to %s (frame %d)", slot, filePath, state.Machine.Frames)
	return nil
}

// LoadState loads a saved state from a slot
func (sm *StateManager) LoadState(b *bus.Bus, slot int, romPath string) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("bus cannot be nil")
	}

	filePath := sm.getSlotFilePath(slot, romPath)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("%w in slot %d", ErrNoSaveState, slot)
	}

	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	if err := sm.validateSaveState(state, romPath); err != nil {
		return fmt.Errorf("invalid save state: %w", err)
	}

	if err := b.RestoreState(state.Machine); err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}

	log.Printf("[STATE] loaded slot %d from %s (frame %d)", slot, filePath, state.Machine.Frames)
	return nil
}

func (sm *StateManager) capture(b *bus.Bus, romPath string) *SaveState {
	return &SaveState{
		Version:     StateVersion,
		Timestamp:   time.Now(),
		ROMPath:     romPath,
		ROMChecksum: sm.calculateROMChecksum(romPath),
		CPUState:    b.GetCPUState(),
		Machine:     b.State(),
	}
}

// saveToFile saves a state to a file
func (sm *StateManager) saveToFile(state *SaveState, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// loadFromFile loads a state from a file
func (sm *StateManager) loadFromFile(filePath string) (*SaveState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// validateSaveState checks the version and that the state was taken with
// the same system ROM. ROMs are compared by content, so a renamed file
// still matches.
func (sm *StateManager) validateSaveState(state *SaveState, currentROMPath string) error {
	if state.Version == "" {
		return fmt.Errorf("missing version information")
	}
	if state.Version != StateVersion {
		return fmt.Errorf("unsupported version %q", state.Version)
	}

	current := sm.calculateROMChecksum(currentROMPath)
	if state.ROMChecksum != "" && current != "" {
		if state.ROMChecksum != current {
			return ErrWrongROM
		}
		return nil
	}
	if state.ROMPath != currentROMPath {
		return ErrWrongROM
	}
	return nil
}

// getSlotFilePath generates the file path for a save slot
func (sm *StateManager) getSlotFilePath(slot int, romPath string) string {
	name := builtinROMName
	if romPath != "" {
		base := filepath.Base(romPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	fileName := fmt.Sprintf("%s_slot_%d.save", name, slot)
	return filepath.Join(sm.saveDirectory, fileName)
}

// calculateROMChecksum returns the SHA-256 of the ROM file, or "" for the
// built-in monitor or an unreadable file.
func (sm *StateManager) calculateROMChecksum(romPath string) string {
	if romPath == "" {
		return ""
	}
	data, err := os.ReadFile(romPath)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetSlotInfo returns information about all save slots
func (sm *StateManager) GetSlotInfo(romPath string) []StateSlotInfo {
	slots := make([]StateSlotInfo, sm.maxSlots)

	for i := 0; i < sm.maxSlots; i++ {
		slotInfo := StateSlotInfo{SlotNumber: i}

		filePath := sm.getSlotFilePath(i, romPath)
		if stat, err := os.Stat(filePath); err == nil {
			slotInfo.Used = true
			slotInfo.FilePath = filePath
			slotInfo.FileSize = stat.Size()
			slotInfo.Timestamp = stat.ModTime()

			if state, err := sm.loadFromFile(filePath); err == nil {
				slotInfo.ROMPath = state.ROMPath
				slotInfo.Description = state.Description
				slotInfo.Timestamp = state.Timestamp
			}
		}

		slots[i] = slotInfo
	}

	return slots
}

// DeleteState deletes a save state from a slot
func (sm *StateManager) DeleteState(slot int, romPath string) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	filePath := sm.getSlotFilePath(slot, romPath)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("%w in slot %d", ErrNoSaveState, slot)
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete save state: %w", err)
	}

	return nil
}

// HasSaveState checks if a save state exists in a slot
func (sm *StateManager) HasSaveState(slot int, romPath string) bool {
	if slot < 0 || slot >= sm.maxSlots {
		return false
	}

	_, err := os.Stat(sm.getSlotFilePath(slot, romPath))
	return err == nil
}

// GetMaxSlots returns the maximum number of save slots
func (sm *StateManager) GetMaxSlots() int {
	return sm.maxSlots
}

// GetSaveDirectory returns the save directory path
func (sm *StateManager) GetSaveDirectory() string {
	return sm.saveDirectory
}

// ExportState writes the current state to a specific file
func (sm *StateManager) ExportState(b *bus.Bus, filePath string, romPath string) error {
	if b == nil {
		return fmt.Errorf("bus cannot be nil")
	}
	state := sm.capture(b, romPath)
	state.SlotNumber = -1
	state.Description = fmt.Sprintf("Export %s", state.Timestamp.Format("2006-01-02 15:04:05"))
	return sm.saveToFile(state, filePath)
}

// ImportState restores a state from a specific file
func (sm *StateManager) ImportState(b *bus.Bus, filePath string, romPath string) error {
	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to import state: %w", err)
	}

	if err := sm.validateSaveState(state, romPath); err != nil {
		return fmt.Errorf("invalid imported state: %w", err)
	}

	return b.RestoreState(state.Machine)
}

// Cleanup cleans up state manager resources
func (sm *StateManager) Cleanup() error {
	sm.initialized = false
	return nil
}

// GetStateManagerStats returns statistics about the state manager
func (sm *StateManager) GetStateManagerStats(romPath string) StateManagerStats {
	var usedSlots int
	var totalSize int64
	for _, slot := range sm.GetSlotInfo(romPath) {
		if slot.Used {
			usedSlots++
			totalSize += slot.FileSize
		}
	}

	return StateManagerStats{
		MaxSlots:      sm.maxSlots,
		UsedSlots:     usedSlots,
		FreeSlots:     sm.maxSlots - usedSlots,
		TotalSize:     totalSize,
		SaveDirectory: sm.saveDirectory,
		Initialized:   sm.initialized,
	}
}

// StateManagerStats contains state manager statistics
type StateManagerStats struct {
	MaxSlots      int    `json:"max_slots"`
	UsedSlots     int    `json:"used_slots"`
	FreeSlots     int    `json:"free_slots"`
	TotalSize     int64  `json:"total_size"`
	SaveDirectory string `json:"save_directory"`
	Initialized   bool   `json:"initialized"`
}
