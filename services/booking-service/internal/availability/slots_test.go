package availability

import (
	"testing"
	"time"
)

func TestSlots_Basic(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	cfg := Config{Duration: 15 * time.Minute, Step: 15 * time.Minute}
	slots := Slots(windowStart, windowEnd, cfg, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestSlots_MinimumNotice(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	cfg := Config{Duration: 15 * time.Minute, Step: 15 * time.Minute, MinimumNotice: 30 * time.Minute}
	now := day.Add(9 * time.Hour)
	slots := Slots(windowStart, windowEnd, cfg, nil, now)
	// 09:00 and 09:15 fall inside the notice period. 09:30 and 09:45 remain.
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected first slot 09:30, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestSlots_BuffersBlockAdjacent(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(11 * time.Hour)

	busy := []Interval{
		{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)},
	}

	cfg := Config{
		Duration:     30 * time.Minute,
		Step:         30 * time.Minute,
		BeforeBuffer: 10 * time.Minute,
		AfterBuffer:  10 * time.Minute,
	}
	slots := Slots(windowStart, windowEnd, cfg, busy, day)
	// 09:30 would end at 10:00 and its after-buffer reaches into the busy
	// block; 10:30 starts as the block ends and its before-buffer collides.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestSlots_SeatedEventSharesSlot(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	busy := []Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute), EventTypeID: "et-group"},
	}

	cfg := Config{EventTypeID: "et-group", Duration: 30 * time.Minute, Step: 30 * time.Minute, Seats: 2}
	slots := Slots(windowStart, windowEnd, cfg, busy, day)
	// One of two seats is taken at 09:00, so the slot stays offerable.
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}

	busy = append(busy, Interval{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute), EventTypeID: "et-group"})
	slots = Slots(windowStart, windowEnd, cfg, busy, day)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot once full, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected slot 09:30, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestSlots_SeatedEventBlockedByOtherMeeting(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	// The organizer already has an unrelated meeting at 09:00. Open seats on
	// the group event type must not make that slot offerable again.
	busy := []Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute), EventTypeID: "et-one-on-one"},
	}

	cfg := Config{EventTypeID: "et-group", Duration: 30 * time.Minute, Step: 30 * time.Minute, Seats: 3}
	slots := Slots(windowStart, windowEnd, cfg, busy, day)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected slot 09:30, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestSlots_SeatedEventOffsetBookingBlocks(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	// Same event type but a different slot time: seats are per exact slot,
	// so the offset booking is plain busy time for every overlapping slot.
	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute), EventTypeID: "et-group"},
	}

	cfg := Config{EventTypeID: "et-group", Duration: 30 * time.Minute, Step: 30 * time.Minute, Seats: 3}
	slots := Slots(windowStart, windowEnd, cfg, busy, day)
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestSlots_DurationLongerThanWindow(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Duration: 2 * time.Hour, Step: 30 * time.Minute}
	slots := Slots(day.Add(9*time.Hour), day.Add(10*time.Hour), cfg, nil, day)
	if slots != nil {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestFits(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	windows := []Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(13 * time.Hour), End: day.Add(17 * time.Hour)},
	}

	if !Fits(day.Add(9*time.Hour), day.Add(9*time.Hour+30*time.Minute), windows) {
		t.Fatal("expected slot at window start to fit")
	}
	if !Fits(day.Add(16*time.Hour+30*time.Minute), day.Add(17*time.Hour), windows) {
		t.Fatal("expected slot ending at window end to fit")
	}
	if Fits(day.Add(11*time.Hour+45*time.Minute), day.Add(12*time.Hour+15*time.Minute), windows) {
		t.Fatal("expected slot spanning the gap not to fit")
	}
	if Fits(day.Add(8*time.Hour), day.Add(8*time.Hour+30*time.Minute), windows) {
		t.Fatal("expected slot before all windows not to fit")
	}
}
