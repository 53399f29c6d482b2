package jeebie

import (
	"crypto/md5"
	"fmt"
	"os"
	"log/slog"
	"sync"

	"github.com/go-dmg/core/jeebie/cpu"
	"github.com/go-dmg/core/jeebie/debug"
	"github.com/go-dmg/core/jeebie/input/action"
	"github.com/go-dmg/core/jeebie/memory"
	"github.com/go-dmg/core/jeebie/timing"
	"github.com/go-dmg/core/jeebie/video"
)

// DebuggerState represents the current debugger mode
type DebuggerState int

const (
	DebuggerRunning   DebuggerState = iota // Normal execution
	DebuggerPaused                         // Paused, waiting for commands
	DebuggerStep                           // Execute one instruction then pause
	DebuggerStepFrame                      // Execute one frame then pause
)

const cyclesPerFrame = 70224

// DMG is the root struct and entry point for running the emulation. It
// implements the Emulator interface on top of the real CPU/MMU pair, as
// opposed to TestPatternEmulator which fakes a frame without emulating
// anything.
type DMG struct {
	cpu *cpu.CPU
	mem *memory.MMU

	limiter timing.Limiter

	// Debugger state
	debuggerState    DebuggerState
	debuggerMutex    sync.RWMutex
	stepRequested    bool
	frameRequested   bool
	instructionCount uint64
	frameCount       uint64

	// Completion detection, used by headless test-ROM harnesses that have
	// no hardware exit signal to wait on.
	completionMaxFrames    uint64
	completionMinLoopCount int
}

func (e *DMG) init(mem *memory.MMU) {
	e.cpu = cpu.New(mem)
	e.mem = mem
	e.limiter = timing.NewNoOpLimiter()
}

// New creates a new emulator instance with no cartridge loaded.
func New() *DMG {
	e := &DMG{}
	e.init(memory.New())

	return e
}

// NewWithFile creates a new emulator instance and loads the ROM at path into it.
func NewWithFile(path string) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded ROM data", "size", len(data))

	cart, err := memory.NewCartridge(data)
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}

	e := &DMG{}
	e.init(memory.NewWithCartridge(cart))

	return e, nil
}

// SetBoot installs a 256-byte boot ROM image, which overlays the cartridge
// at 0x0000-0x00FF until the boot code itself disables it by writing to
// 0xFF50. The CPU is reset to run from the boot entry point rather than the
// post-boot register state New/NewWithFile seed by default.
func (e *DMG) SetBoot(data []byte) error {
	if err := e.mem.SetBoot(data); err != nil {
		return err
	}
	e.cpu.ResetToBootEntry()
	return nil
}

// tick executes a single CPU instruction and advances every other subsystem
// by the same number of cycles.
func (e *DMG) tick() int {
	cycles := e.cpu.Tick()
	e.mem.Tick(cycles)
	e.instructionCount++
	return cycles
}

// RunUntilFrame executes instructions until a full frame has been produced,
// honoring the current debugger state and frame limiter.
func (e *DMG) RunUntilFrame() error {
	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	// Handle paused state - don't execute anything
	if state == DebuggerPaused {
		return nil
	}

	// Handle step instruction - execute one instruction then pause
	if state == DebuggerStep {
		e.debuggerMutex.Lock()
		if e.stepRequested {
			e.stepRequested = false
			e.debuggerMutex.Unlock()

			oldPC := e.cpu.PC()
			e.tick()

			slog.Debug("Step executed", "pc", fmt.Sprintf("0x%04X", oldPC), "new_pc", fmt.Sprintf("0x%04X", e.cpu.PC()))

			e.SetDebuggerState(DebuggerPaused)
		} else {
			e.debuggerMutex.Unlock()
		}
		return nil
	}

	// Handle step frame - execute one frame then pause
	if state == DebuggerStepFrame {
		e.debuggerMutex.Lock()
		frameRequested := e.frameRequested
		if frameRequested {
			e.frameRequested = false
		}
		e.debuggerMutex.Unlock()

		if frameRequested {
			total := 0
			for total < cyclesPerFrame {
				total += e.tick()
			}
			e.frameCount++
			slog.Debug("Frame step completed", "frame", e.frameCount, "instructions", e.instructionCount)
			e.SetDebuggerState(DebuggerPaused)
			e.limiter.WaitForNextFrame()
		}
		return nil
	}

	// Normal execution (DebuggerRunning)
	total := 0
	for total < cyclesPerFrame {
		total += e.tick()
	}

	e.frameCount++
	if e.frameCount%60 == 0 {
		slog.Debug("Frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.cpu.PC()))
	}

	e.limiter.WaitForNextFrame()
	return nil
}

func (e *DMG) GetCurrentFrame() *video.FrameBuffer {
	return e.mem.PPU.GetFrameBuffer()
}

// ConfigureCompletionDetection sets the bounds RunUntilComplete uses to
// decide a headless test ROM is done. maxFrames is a hard cap. If
// minLoopCount is greater than zero, RunUntilComplete also stops early once
// the rendered frame stops changing for that many consecutive frames, which
// is how most Blargg-style ROMs signal completion: they render their result
// to the screen and then spin forever.
func (e *DMG) ConfigureCompletionDetection(maxFrames uint64, minLoopCount int) {
	e.completionMaxFrames = maxFrames
	e.completionMinLoopCount = minLoopCount
}

// RunUntilComplete runs frames until the completion bounds configured via
// ConfigureCompletionDetection are met. It ignores the debugger state set on
// the emulator, since it is meant for unattended test-ROM harnesses.
func (e *DMG) RunUntilComplete() {
	var lastHash [md5.Size]byte
	stableFrames := 0

	for frame := uint64(0); frame < e.completionMaxFrames; frame++ {
		if err := e.runFrameUnconditionally(); err != nil {
			return
		}

		if e.completionMinLoopCount <= 0 {
			continue
		}

		hash := md5.Sum(e.GetCurrentFrame().ToGrayscale())
		if hash == lastHash {
			stableFrames++
			if stableFrames >= e.completionMinLoopCount {
				return
			}
		} else {
			stableFrames = 0
			lastHash = hash
		}
	}
}

// runFrameUnconditionally executes exactly one frame's worth of cycles,
// bypassing the debugger state machine used by RunUntilFrame.
func (e *DMG) runFrameUnconditionally() error {
	cyclesThisFrame := 0
	for cyclesThisFrame < cyclesPerFrame {
		cyclesThisFrame += e.tick()
	}
	e.frameCount++
	return nil
}

// HandleAction routes a high-level input action to the joypad or debugger.
func (e *DMG) HandleAction(act action.Action, pressed bool) {
	if key, ok := joypadKeyForAction(act); ok {
		if pressed {
			e.mem.HandleKeyPress(key)
		} else {
			e.mem.HandleKeyRelease(key)
		}
		return
	}

	if !pressed {
		return
	}

	switch act {
	case action.EmulatorPauseToggle:
		if e.GetDebuggerState() == DebuggerPaused {
			e.DebuggerResume()
		} else {
			e.DebuggerPause()
		}
	case action.EmulatorStepFrame:
		e.DebuggerStepFrame()
	case action.EmulatorStepInstruction:
		e.DebuggerStepInstruction()
	}
}

func joypadKeyForAction(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	}
	return 0, false
}

// ExtractDebugData snapshots CPU, memory, OAM and VRAM state for debug
// frontends. Returns nil when the emulator has no ROM loaded yet.
func (e *DMG) ExtractDebugData() *debug.CompleteDebugData {
	if e.mem == nil || e.cpu == nil {
		return nil
	}

	pc := e.cpu.PC()

	const snapshotSize = 200
	startAddr := pc
	size := snapshotSize
	if int(startAddr)+size > 0x10000 {
		size = 0x10000 - int(startAddr)
	}

	snapshotBytes := make([]uint8, size)
	for i := 0; i < size; i++ {
		snapshotBytes[i] = e.mem.Read(startAddr + uint16(i))
	}

	cpuState := &debug.CPUState{
		A:      e.cpu.GetA(),
		F:      e.cpu.GetF(),
		B:      e.cpu.GetB(),
		C:      e.cpu.GetC(),
		D:      e.cpu.GetD(),
		E:      e.cpu.GetE(),
		H:      e.cpu.GetH(),
		L:      e.cpu.GetL(),
		SP:     e.cpu.SP(),
		PC:     pc,
		IME:    e.mem.ReadBit(0, 0xFFFF),
		Cycles: e.instructionCount,
	}

	currentLine := int(e.mem.Read(0xFF44))
	lcdc := e.mem.Read(0xFF40)
	spriteHeight := 8
	if lcdc&0x04 != 0 {
		spriteHeight = 16
	}

	return &debug.CompleteDebugData{
		OAM:             debug.ExtractOAMDataFromReader(e.mem, currentLine, spriteHeight),
		VRAM:            debug.ExtractVRAMDataFromReader(e.mem),
		CPU:             cpuState,
		Memory:          &debug.MemorySnapshot{StartAddr: startAddr, Bytes: snapshotBytes},
		DebuggerState:   debug.DebuggerState(e.GetDebuggerState()),
		InterruptEnable: e.mem.Read(0xFFFF),
		InterruptFlags:  e.mem.Read(0xFF0F),
	}
}

// SetFrameLimiter installs the pacing strategy used between frames.
func (e *DMG) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		e.limiter = timing.NewNoOpLimiter()
	} else {
		e.limiter = limiter
	}
}

// ResetFrameTiming clears any accumulated pacing state in the limiter.
func (e *DMG) ResetFrameTiming() {
	e.limiter.Reset()
}

func (e *DMG) HandleKeyPress(key memory.JoypadKey) {
	e.mem.HandleKeyPress(key)
}

func (e *DMG) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.HandleKeyRelease(key)
}

func (e *DMG) GetCPU() *cpu.CPU {
	return e.cpu
}

// Debugger control methods
func (e *DMG) SetDebuggerState(state DebuggerState) {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.debuggerState = state
	slog.Debug("Debugger state changed", "state", state)
}

func (e *DMG) GetDebuggerState() DebuggerState {
	e.debuggerMutex.RLock()
	defer e.debuggerMutex.RUnlock()
	return e.debuggerState
}

func (e *DMG) DebuggerPause() {
	e.SetDebuggerState(DebuggerPaused)
	slog.Info("Emulator paused")
}

func (e *DMG) DebuggerResume() {
	e.SetDebuggerState(DebuggerRunning)
	slog.Info("Emulator resumed")
}

func (e *DMG) DebuggerStepInstruction() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.stepRequested = true
	e.debuggerState = DebuggerStep
	slog.Info("Step instruction requested")
}

func (e *DMG) DebuggerStepFrame() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.frameRequested = true
	e.debuggerState = DebuggerStepFrame
	slog.Info("Step frame requested")
}

func (e *DMG) GetInstructionCount() uint64 {
	return e.instructionCount
}

func (e *DMG) GetFrameCount() uint64 {
	return e.frameCount
}

func (e *DMG) GetMMU() *memory.MMU {
	return e.mem
}
