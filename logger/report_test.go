package logger

import (
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

func TestUsedBytesNilStats(t *testing.T) {
	if got := memUsedBytes(nil); got != 0 {
		t.Errorf("memUsedBytes(nil) = %d, want 0", got)
	}
	if got := diskUsedBytes(nil); got != 0 {
		t.Errorf("diskUsedBytes(nil) = %d, want 0", got)
	}

	if got := memUsedBytes(&mem.VirtualMemoryStat{Used: 42}); got != 42 {
		t.Errorf("memUsedBytes = %d, want 42", got)
	}
	if got := diskUsedBytes(&disk.UsageStat{Used: 7}); got != 7 {
		t.Errorf("diskUsedBytes = %d, want 7", got)
	}
}
