package minitimer_internal

import "testing"

func TestTrackingIndexSetGetDelete(t *testing.T) {
	ti := NewTrackingIndex()
	if ti.Len() != 0 {
		t.Fatalf("Len: want 0, got %d", ti.Len())
	}

	info := TrackingInfo{TaskId: 1, Wheel: SecondWheel, SlotIndex: 5}
	ti.Set(info)
	if ti.Len() != 1 {
		t.Errorf("Len: want 1, got %d", ti.Len())
	}

	got, ok := ti.Get(1)
	if !ok || got != info {
		t.Errorf("Get: want (%v, true), got (%v, %v)", info, got, ok)
	}

	ti.Delete(1)
	if ti.Len() != 0 {
		t.Errorf("Len after Delete: want 0, got %d", ti.Len())
	}
	if _, ok := ti.Get(1); ok {
		t.Errorf("Get after Delete: want false")
	}
}

func TestTrackingIndexOverwrite(t *testing.T) {
	ti := NewTrackingIndex()
	ti.Set(TrackingInfo{TaskId: 1, Wheel: SecondWheel, SlotIndex: 5})
	ti.Set(TrackingInfo{TaskId: 1, Wheel: MinuteWheel, SlotIndex: 9})

	got, ok := ti.Get(1)
	if !ok || got.Wheel != MinuteWheel || got.SlotIndex != 9 {
		t.Errorf("Get after overwrite: want {MinuteWheel, 9}, got %+v", got)
	}
	if ti.Len() != 1 {
		t.Errorf("Len: want 1 after overwrite, got %d", ti.Len())
	}
}
