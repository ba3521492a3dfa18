package main

import (
	"fmt"
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/tickbridge/internal/config"
)

type Report struct {
	// Configuration
	Config     config.Stress
	PruneEvery int
	BatchRenew bool

	// Results
	TotalTime      time.Duration
	Shards         []ShardResult
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Handle Stress Test Report

## Test Configuration
- **Ticks:** {{.Config.Ticks}}
- **Creeps per Shard:** {{.Config.Entities}}
- **Shards:** {{.Config.Shards}}
- **Death Rate:** {{.Config.DeathRate}}
- **Reissue Rate:** {{.Config.ReissueRate}}
- **Prune Interval:** {{.PruneEvery}}
- **Batch Renewal:** {{.BatchRenew}}
- **Total Test Time:** {{.TotalTime}}
{{range .Shards}}
## Shard {{.Shard}}
- **Ticks Run:** {{.Ticks}}
- **Creeps Alive:** {{.Alive}} (deaths: {{.Deaths}}, respawns: {{.Respawns}}, reissued: {{.Reissues}})
- **Tick Time:**
  - **Avg:** {{.TickTime.Avg}}
  - **Min:** {{.TickTime.Min}}
  - **Max:** {{.TickTime.Max}}
- **Handle Traffic:**
  - Renewals: {{.Game.Renewals}}
  - Reacquisitions: {{.Game.Reacquisitions}}
  - Batches: {{.Game.Batches}} ({{.Game.BatchRenewed}} renewed in batch)
  - Host Errors: {{.Game.HostErrors}}
  - Pruned Wrappers: {{.Game.Pruned}}
- **Host Calls:** renew {{.Host.Renews}}, reacquire {{.Host.Reacquires}}, batch {{.Host.Batches}}, read {{.Host.Reads}}
{{- with .Scheduler}}
- **Systems:**
{{- range .Systems}}
  - {{.Name}}: avg {{.AvgDuration}}, max {{.MaxDuration}}
{{- end}}
{{- end}}
{{end}}
## Memory Usage (MiB)
- Heap Alloc:     {{mb .MemStatsStart.HeapAlloc}} (start) -> {{mb .MemStatsEnd.HeapAlloc}} (end) -> delta: {{mb (bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc)}}
- Total Alloc:    {{mb .MemStatsStart.TotalAlloc}} (start) -> {{mb .MemStatsEnd.TotalAlloc}} (end) -> delta: {{mb (bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc)}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
