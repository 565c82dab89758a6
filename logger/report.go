package logger

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var (
	errorsTotal     int64
	warnsTotal      int64
	snapshotRecords int64
	portfolioPoints int64
	ledgerEvents    int64
	flowsExtracted  int64
	pairsCompared   int64
	artifactWrites  int64
)

func recordWarn() {
	atomic.AddInt64(&warnsTotal, 1)
}

func recordError() {
	atomic.AddInt64(&errorsTotal, 1)
}

// AddSnapshotRecords counts parsed Artemis snapshot lines.
func AddSnapshotRecords(n int) {
	atomic.AddInt64(&snapshotRecords, int64(n))
}

// AddPortfolioPoints counts Hyperliquid portfolio points kept in-window.
func AddPortfolioPoints(n int) {
	atomic.AddInt64(&portfolioPoints, int64(n))
}

// AddLedgerEvents counts raw ledger records fetched (pre-dedup).
func AddLedgerEvents(n int) {
	atomic.AddInt64(&ledgerEvents, int64(n))
}

// AddFlows counts signed flows extracted from the ledger.
func AddFlows(n int) {
	atomic.AddInt64(&flowsExtracted, int64(n))
}

// AddPairsCompared counts aligned pairs run through the classifier.
func AddPairsCompared(n int) {
	atomic.AddInt64(&pairsCompared, int64(n))
}

// IncrementArtifactWrite counts persisted artifacts.
func IncrementArtifactWrite() {
	atomic.AddInt64(&artifactWrites, 1)
}

// gopsutil returns a nil stat alongside its error; tolerate that instead of
// letting the report goroutine panic.
func memUsedBytes(stats *mem.VirtualMemoryStat) uint64 {
	if stats == nil {
		return 0
	}
	return stats.Used
}

func diskUsedBytes(stats *disk.UsageStat) uint64 {
	if stats == nil {
		return 0
	}
	return stats.Used
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and pipeline statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	memUsed := memUsedBytes(memStats)
	diskUsed := diskUsedBytes(diskStats)

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors":           atomic.LoadInt64(&errorsTotal),
		"warns":            atomic.LoadInt64(&warnsTotal),
		"snapshot_records": atomic.LoadInt64(&snapshotRecords),
		"portfolio_points": atomic.LoadInt64(&portfolioPoints),
		"ledger_events":    atomic.LoadInt64(&ledgerEvents),
		"flows_extracted":  atomic.LoadInt64(&flowsExtracted),
		"pairs_compared":   atomic.LoadInt64(&pairsCompared),
		"artifact_writes":  atomic.LoadInt64(&artifactWrites),
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memUsed) / 1024 / 1024,
		"disk_mb":          int64(diskUsed) / 1024 / 1024,
		"net_bytes_sent":   int64(bytesSent),
		"net_bytes_recv":   int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	counterMetrics := map[string]*int64{
		"Reconflow-Errors":          &errorsTotal,
		"Reconflow-Warns":           &warnsTotal,
		"Reconflow-SnapshotRecords": &snapshotRecords,
		"Reconflow-PortfolioPoints": &portfolioPoints,
		"Reconflow-LedgerEvents":    &ledgerEvents,
		"Reconflow-FlowsExtracted":  &flowsExtracted,
		"Reconflow-PairsCompared":   &pairsCompared,
		"Reconflow-ArtifactWrites":  &artifactWrites,
	}

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("Reconflow-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("Reconflow-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memUsed) / 1024 / 1024)},
		{MetricName: aws.String("Reconflow-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskUsed) / 1024 / 1024)},
		{MetricName: aws.String("Reconflow-NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		{MetricName: aws.String("Reconflow-NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	}
	for name, counter := range counterMetrics {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(float64(atomic.LoadInt64(counter))),
		})
	}

	publishMetrics(ctx, data)
}
