package ffmpeg

import (
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"clipforge/internal/logging"
)

const samplerInterval = 2 * time.Second

// memorySampler polls a child process's RSS for diagnostics. Its lifetime
// is scoped to the supervised process; sampling failures are swallowed and
// never influence the command's outcome.
type memorySampler struct {
	done chan struct{}
	quit chan struct{}
}

func startMemorySampler(pid int, logger *slog.Logger) *memorySampler {
	s := &memorySampler{
		done: make(chan struct{}),
		quit: make(chan struct{}),
	}
	go s.loop(pid, logger)
	return s
}

func (s *memorySampler) loop(pid int, logger *slog.Logger) {
	defer close(s.done)

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return
	}

	ticker := time.NewTicker(samplerInterval)
	defer ticker.Stop()

	var peakRSS uint64
	for {
		select {
		case <-s.quit:
			if logger != nil && peakRSS > 0 {
				logger.Debug("child memory usage",
					logging.Int("pid", pid),
					logging.Uint64("peak_rss_bytes", peakRSS),
				)
			}
			return
		case <-ticker.C:
			info, err := proc.MemoryInfo()
			if err != nil || info == nil {
				continue
			}
			if info.RSS > peakRSS {
				peakRSS = info.RSS
			}
		}
	}
}

// stop ends sampling and waits for the loop to exit.
func (s *memorySampler) stop() {
	close(s.quit)
	<-s.done
}
