package memory

import "testing"

func TestMMU_SetBoot_RejectsWrongSize(t *testing.T) {
	m := New()

	if err := m.SetBoot(make([]byte, 255)); err == nil {
		t.Fatal("SetBoot(255 bytes) should be rejected")
	}
	if err := m.SetBoot(make([]byte, 257)); err == nil {
		t.Fatal("SetBoot(257 bytes) should be rejected")
	}
	if m.bootActive {
		t.Fatal("bootActive should still be false after rejected SetBoot calls")
	}
}

func TestMMU_SetBoot_OverlaysLowROM(t *testing.T) {
	m := New()

	boot := make([]byte, 256)
	for i := range boot {
		boot[i] = byte(i)
	}

	if err := m.SetBoot(boot); err != nil {
		t.Fatalf("SetBoot: %v", err)
	}

	for addr := uint16(0); addr < 256; addr++ {
		if got := m.Read(addr); got != byte(addr) {
			t.Fatalf("Read(0x%04X) = 0x%02X, want 0x%02X", addr, got, byte(addr))
		}
	}
}

func newTestCartridge(t *testing.T) *Cartridge {
	t.Helper()
	data := make([]byte, 0x8000)
	data[cartridgeTypeAddress] = 0x00 // KindNone
	data[romSizeAddress] = 0x00
	data[ramSizeAddress] = 0x00
	for i := 0; i < 256; i++ {
		data[i] = 0xAA
	}
	cart, err := NewCartridge(data)
	if err != nil {
		t.Fatalf("NewCartridge: %v", err)
	}
	return cart
}

func TestMMU_BootDisable_IsOneWayLatch(t *testing.T) {
	m := NewWithCartridge(newTestCartridge(t))

	boot := make([]byte, 256)
	for i := range boot {
		boot[i] = 0xBB
	}
	if err := m.SetBoot(boot); err != nil {
		t.Fatalf("SetBoot: %v", err)
	}

	if got := m.Read(0x0000); got != 0xBB {
		t.Fatalf("Read(0x0000) with boot active = 0x%02X, want 0xBB", got)
	}

	// A zero write must not clear the latch.
	m.Write(0xFF50, 0x00)
	if !m.bootActive {
		t.Fatal("writing 0x00 to 0xFF50 should not disable the boot region")
	}
	if got := m.Read(0x0000); got != 0xBB {
		t.Fatalf("Read(0x0000) after zero write to 0xFF50 = 0x%02X, want 0xBB", got)
	}

	// A non-zero write disables it, permanently.
	m.Write(0xFF50, 0x01)
	if m.bootActive {
		t.Fatal("writing a non-zero value to 0xFF50 should disable the boot region")
	}
	if got := m.Read(0x0000); got != 0xAA {
		t.Fatalf("Read(0x0000) after boot disable = 0x%02X, want cartridge byte 0xAA", got)
	}

	m.Write(0xFF50, 0x00)
	if got := m.Read(0x0000); got != 0xAA {
		t.Fatalf("boot region reappeared after it was latched off: Read(0x0000) = 0x%02X", got)
	}
}
