// ABOUTME: Warm-up policies for the playback scheduler
// ABOUTME: Decide when enough audio is queued to start playback
package stream

import (
	"fmt"
	"time"
)

// WarmUp decides when paused playback may start
type WarmUp interface {
	// Satisfied reports whether playback may start after units buffers
	// totalling buffered have been enqueued
	Satisfied(units int, buffered time.Duration) bool

	// UnitsNeeded returns how many units of the given length must be queued
	// before Satisfied can hold
	UnitsNeeded(unit time.Duration) int

	String() string
}

// UnitCount starts playback once more than n units have been enqueued
func UnitCount(n int) WarmUp {
	return unitCount(n)
}

type unitCount int

func (n unitCount) Satisfied(units int, _ time.Duration) bool {
	return units > int(n)
}

func (n unitCount) UnitsNeeded(time.Duration) int {
	return max(int(n), 0) + 1
}

func (n unitCount) String() string {
	return fmt.Sprintf("more than %d units", int(n))
}

// BufferedFor starts playback once more than d of audio has been enqueued.
// Unlike UnitCount it is unaffected by units of different sizes.
func BufferedFor(d time.Duration) WarmUp {
	return bufferedFor(d)
}

type bufferedFor time.Duration

func (d bufferedFor) Satisfied(_ int, buffered time.Duration) bool {
	return buffered > time.Duration(d)
}

func (d bufferedFor) UnitsNeeded(unit time.Duration) int {
	if unit <= 0 || d < 0 {
		return 1
	}
	return int(time.Duration(d)/unit) + 1
}

func (d bufferedFor) String() string {
	return fmt.Sprintf("more than %v buffered", time.Duration(d))
}
