package serial

import (
	"testing"

	"github.com/go-dmg/core/jeebie/addr"
)

func TestLogSink_Immediate_CompletesOnWrite(t *testing.T) {
	s := NewLogSink()

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0x81)

	if s.Read(addr.SC)&0x80 != 0 {
		t.Fatal("immediate transfer should clear the start bit right away")
	}
	if !s.PendingInterrupt() {
		t.Fatal("immediate transfer should request an interrupt right away")
	}
}

func TestLogSink_FixedTiming_SpansFullByte(t *testing.T) {
	s := NewLogSink(WithFixedTiming())

	s.Write(addr.SB, 'A')
	s.Write(addr.SC, 0x81)

	if s.Read(addr.SC)&0x80 == 0 {
		t.Fatal("paced transfer should still be in progress right after the SC write")
	}
	if s.PendingInterrupt() {
		t.Fatal("paced transfer should not complete before any cycles elapse")
	}

	// 512 cycles per shifted bit, 8 bits per byte.
	s.Tick(4095)
	if s.Read(addr.SC)&0x80 == 0 {
		t.Fatal("paced transfer completed one cycle too early")
	}

	s.Tick(1)
	if s.Read(addr.SC)&0x80 != 0 {
		t.Fatal("paced transfer should have completed after 4096 cycles")
	}
	if !s.PendingInterrupt() {
		t.Fatal("paced transfer should request an interrupt on completion")
	}
}
