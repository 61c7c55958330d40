package alloc

import "testing"

func TestFillStampsEveryByte(t *testing.T) {
	sizes := []int{1, 2, 3, 1000, 4097, FillChunk + 17}

	for _, size := range sizes {
		buf := make([]byte, size)
		if !Fill(buf, 0xA5, nil) {
			t.Fatalf("Fill(%d) reported interruption without a stop func", size)
		}
		if idx := Verify(buf, 0xA5); idx != -1 {
			t.Errorf("size %d: byte %d not stamped", size, idx)
		}
	}
}

func TestFillStops(t *testing.T) {
	buf := make([]byte, 3*FillChunk)

	checks := 0
	done := Fill(buf, 7, func() bool {
		checks++
		return true
	})

	if done {
		t.Fatal("Fill should report interruption")
	}
	if checks != 1 {
		t.Errorf("expected one stop check, got %d", checks)
	}
	if buf[0] != 7 || buf[len(buf)-1] != 0 {
		t.Error("expected only the first chunk to be stamped")
	}
}

func TestFillEmpty(t *testing.T) {
	if !Fill(nil, 1, func() bool { return true }) {
		t.Error("empty fill is trivially complete")
	}
}

func TestVerify(t *testing.T) {
	buf := []byte{3, 3, 4, 3}
	if got := Verify(buf, 3); got != 2 {
		t.Errorf("Verify = %d, want 2", got)
	}
}
