package compress

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"clipforge/internal/ffmpeg"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
)

// Describer resolves a media file into its canonical description.
type Describer interface {
	Describe(ctx context.Context, path string) (*media.Info, error)
}

// Request parameterizes one matrix run.
type Request struct {
	Input     string
	OutputDir string
	BaseName  string
	// Formats selects format profiles by name; unknown names are ignored.
	Formats []string
	// KeepOriginalQuality adds a rung at the source height when it falls
	// between predefined profiles.
	KeepOriginalQuality bool
	// TwoPass enables two-pass encoding for rungs that qualify.
	TwoPass bool
}

// Result is the outcome of a matrix run. Files maps format name to the
// produced paths in ladder order; formats with no output are absent.
// Warnings carries non-fatal quality findings.
type Result struct {
	Files    map[string][]string
	Warnings []string
}

// Matrix fans one input out into every (format, resolution) rendition.
type Matrix struct {
	runner  ffmpeg.Runner
	prober  Describer
	timeout time.Duration
	threads int
	logger  *slog.Logger
}

// NewMatrix constructs a compression matrix. threads caps encoder thread
// pools per job.
func NewMatrix(runner ffmpeg.Runner, prober Describer, timeout time.Duration, threads int, logger *slog.Logger) *Matrix {
	if threads <= 0 {
		threads = 4
	}
	return &Matrix{
		runner:  runner,
		prober:  prober,
		timeout: timeout,
		threads: threads,
		logger:  logging.NewComponentLogger(logger, "compress"),
	}
}

type job struct {
	format     FormatProfile
	resolution ResolutionProfile
	output     string
	twoPass    bool
}

type jobOutcome struct {
	path    string
	warning string
}

// Run executes the full matrix. Individual job failures are logged and
// leave gaps in the result; only precondition failures return an error.
// A job whose output already exists non-empty is counted as satisfied
// without invoking the encoder, so retries are idempotent.
func (m *Matrix) Run(ctx context.Context, req Request) (*Result, error) {
	if !fileutil.NonEmpty(req.Input) {
		return nil, services.Wrap(services.ErrValidation, "compress", "run", fmt.Sprintf("input not readable: %s", req.Input), nil)
	}
	if req.BaseName == "" {
		return nil, services.Wrap(services.ErrValidation, "compress", "run", "output base name required", nil)
	}

	var formats []FormatProfile
	for _, name := range req.Formats {
		if profile, ok := formatProfiles[name]; ok {
			formats = append(formats, profile)
		} else {
			m.logger.Warn("ignoring unknown format", logging.String("format", name))
		}
	}
	if len(formats) == 0 {
		return nil, services.Wrap(services.ErrValidation, "compress", "run", "no recognized formats requested", nil)
	}

	info, err := m.prober.Describe(ctx, req.Input)
	if err != nil {
		return nil, err
	}
	if info.Height <= 0 {
		return nil, services.Wrap(services.ErrValidation, "compress", "run", "could not determine video height", nil)
	}
	ladder := Ladder(info.Height, req.KeepOriginalQuality)
	if len(ladder) == 0 {
		return nil, services.Wrap(services.ErrValidation, "compress", "run", fmt.Sprintf("source height %d below the smallest profile", info.Height), nil)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrValidation, "compress", "run", "output directory not writable", err)
	}

	var jobs []job
	for _, format := range formats {
		for _, resolution := range ladder {
			jobs = append(jobs, job{
				format:     format,
				resolution: resolution,
				output:     filepath.Join(req.OutputDir, fmt.Sprintf("%s_%s.%s", req.BaseName, resolution.Name, format.Extension)),
				twoPass:    req.TwoPass && resolution.TwoPassEligible,
			})
		}
	}

	m.logger.Info("starting compression matrix",
		logging.String(logging.FieldInput, req.Input),
		logging.Int("source_height", info.Height),
		logging.Int("jobs", len(jobs)),
	)

	// Jobs are independent and unordered; outcome slots keep the final
	// listing in ladder order regardless of completion order.
	outcomes := make([]jobOutcome, len(jobs))
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(slot int, j job) {
			defer wg.Done()
			outcomes[slot] = m.runJob(ctx, req.Input, j)
		}(i, jobs[i])
	}
	wg.Wait()

	result := &Result{Files: make(map[string][]string)}
	for i, outcome := range outcomes {
		if outcome.path != "" {
			name := jobs[i].format.Name
			result.Files[name] = append(result.Files[name], outcome.path)
		}
		if outcome.warning != "" {
			result.Warnings = append(result.Warnings, outcome.warning)
		}
	}
	return result, nil
}

func (m *Matrix) runJob(ctx context.Context, input string, j job) jobOutcome {
	if fileutil.NonEmpty(j.output) {
		m.logger.Info("rendition already satisfied",
			logging.String(logging.FieldOutput, j.output),
		)
		return m.check(j, jobOutcome{path: j.output})
	}

	base := m.jobArgs(input, j)
	var err error
	if j.twoPass {
		err = m.runTwoPass(ctx, base, j)
	} else {
		err = m.runner.Run(ctx, append(base, j.output), m.timeout)
	}
	if err != nil || !fileutil.NonEmpty(j.output) {
		fileutil.RemovePartial(j.output)
		m.logger.Warn("rendition failed",
			logging.String("format", j.format.Name),
			logging.String("resolution", j.resolution.Name),
			logging.Error(err),
		)
		return jobOutcome{}
	}
	return m.check(j, jobOutcome{path: j.output})
}

// runTwoPass encodes in two sequential invocations sharing one pass-log
// base. The first pass writes statistics only; the log files are removed
// once the second pass succeeds.
func (m *Matrix) runTwoPass(ctx context.Context, base []string, j job) error {
	logBase := j.output + ".2pass"
	defer func() {
		os.Remove(logBase + "-0.log")
		os.Remove(logBase + ".log")
		os.Remove(logBase + ".log.mbtree")
	}()

	pass1 := append(append([]string(nil), base...), "-pass", "1", "-passlogfile", logBase, "-f", "null", os.DevNull)
	if err := m.runner.Run(ctx, pass1, m.timeout); err != nil {
		return err
	}
	pass2 := append(append([]string(nil), base...), "-pass", "2", "-passlogfile", logBase, j.output)
	return m.runner.Run(ctx, pass2, m.timeout)
}

// jobArgs builds everything up to (but not including) the output path, so
// the two-pass runner can append its own tail.
func (m *Matrix) jobArgs(input string, j job) []string {
	res := j.resolution
	avg := res.AvgBitrateKbps()

	args := []string{
		"-v", "error", "-y",
		"-hwaccel", "auto",
		"-i", input,
		"-vf", fmt.Sprintf("scale=-2:%d", res.Height),
		"-c:v", j.format.VideoCodec,
		"-b:v", fmt.Sprintf("%dk", avg),
		"-maxrate", fmt.Sprintf("%dk", res.MaxBitrateKbps),
		"-minrate", fmt.Sprintf("%dk", res.MinBitrateKbps),
		"-bufsize", fmt.Sprintf("%dk", avg*2),
		"-c:a", j.format.AudioCodec,
		"-b:a", res.AudioBitrate,
	}
	args = append(args, j.format.ContainerOptions...)

	switch j.format.VideoCodec {
	case "libx264", "libx265":
		preset := j.format.Preset
		if res.Height <= 480 {
			preset = "fast"
		}
		paramsFlag := "-x264-params"
		if j.format.VideoCodec == "libx265" {
			paramsFlag = "-x265-params"
		}
		threads := m.threads
		if threads > 4 {
			threads = 4
		}
		args = append(args,
			"-preset", preset,
			"-crf", strconv.Itoa(res.CRF),
			"-profile:v", j.format.CodecProfile,
			"-tune", j.format.Tune,
			paramsFlag, fmt.Sprintf("log-level=error:threads=%d", threads),
		)
	case "libvpx-vp9":
		speed := j.format.Speed
		if res.Height <= 480 {
			speed = 4
		}
		threads := m.threads
		if threads > 8 {
			threads = 8
		}
		args = append(args,
			"-speed", strconv.Itoa(speed),
			"-row-mt", "1",
			"-quality", "good",
			"-crf", strconv.Itoa(res.CRF),
			"-threads", strconv.Itoa(threads),
		)
	}
	return args
}

// check flags implausibly small outputs. The rendition still counts; the
// warning is advisory.
func (m *Matrix) check(j job, outcome jobOutcome) jobOutcome {
	sizeMB := fileutil.SizeBytes(outcome.path) / (1 << 20)
	if sizeMB < int64(j.resolution.MinSizeMB) {
		outcome.warning = fmt.Sprintf("%s: %dMB is below the %dMB floor for %s",
			filepath.Base(outcome.path), sizeMB, j.resolution.MinSizeMB, j.resolution.Name)
		m.logger.Warn("suspiciously small rendition",
			logging.String(logging.FieldOutput, outcome.path),
			logging.Int64("size_mb", sizeMB),
			logging.Int("floor_mb", j.resolution.MinSizeMB),
		)
	}
	return outcome
}
