package gateway

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// healthSnapshot is the /healthz body. Process fields are best-effort:
// they are omitted when the probe fails rather than failing the check.
type healthSnapshot struct {
	Status     string  `json:"status"`
	PID        int     `json:"pid"`
	Goroutines int     `json:"goroutines"`
	RSSBytes   uint64  `json:"rssBytes,omitempty"`
	CPUPercent float64 `json:"cpuPercent,omitempty"`
	UptimeSec  float64 `json:"uptimeSec,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := healthSnapshot{
		Status:     "ok",
		PID:        os.Getpid(),
		Goroutines: runtime.NumGoroutine(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		s.log.Warn("process probe failed", zap.Error(err))
		writeJSON(w, http.StatusOK, snap)
		return
	}

	if mem, err := proc.MemoryInfo(); err == nil {
		snap.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		snap.CPUPercent = cpu
	}
	if created, err := proc.CreateTime(); err == nil {
		snap.UptimeSec = time.Since(time.UnixMilli(created)).Seconds()
	}

	writeJSON(w, http.StatusOK, snap)
}
