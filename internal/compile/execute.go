package compile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/encoderprobe"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/ffmpeg"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/fileutil"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/jobspec"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/stage"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/timeline"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/workerapi"
)

// Execute renders one claimed compilation job end to end. The job arrives in
// running status; Execute moves it through encoding_segments, concatenating,
// and finalizing, and marks it completed only after the output record has
// been pushed to the application. Any error leaves the failure handling to
// the workflow manager.
func (c *Compiler) Execute(ctx context.Context, job *queue.Job) error {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, c.logger)

	opts, err := stage.ParseOptions(job.OptionsJSON)
	if err != nil {
		return err
	}

	reporter := newProgressReporter(c.store, c.api, job, logger)
	reporter.report(ctx, "Fetching", "Fetching compilation context", 2)

	jobID := strconv.FormatInt(job.ID, 10)
	cctx, err := c.api.CompilationContext(ctx, job.ProjectID, jobID)
	if err != nil {
		return fmt.Errorf("fetch compilation context for project %s: %w", job.ProjectID, err)
	}

	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		userID = cctx.Project.UserID
	}

	if err := c.checkQuota(ctx, cctx, userID); err != nil {
		return err
	}
	reporter.report(ctx, "Preparing", "Quota verified", 5)

	decision := c.probeEncoder(ctx, job, logger)
	reporter.report(ctx, "Preparing", "Encoder selected: "+decision.Codec, 8)

	segments, err := c.buildTimeline(opts, cctx, job)
	if err != nil {
		return err
	}

	localSegments, err := c.resolveSegments(segments, logger)
	if err != nil {
		return err
	}
	reporter.report(ctx, "Preparing", fmt.Sprintf("Resolved %d segments", len(localSegments)), 12)

	if err := c.transition(ctx, job, queue.StatusEncodingSegments, reporter); err != nil {
		return err
	}

	tempDir := filepath.Join(c.cfg.Paths.TempDir, "job-"+jobID)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "compile", "create temp dir", tempDir, err)
	}
	defer os.RemoveAll(tempDir)

	settings := c.settings(opts, decision)
	segmentPaths, err := c.renderSegments(ctx, job, localSegments, settings, decision, tempDir, reporter, logger)
	if err != nil {
		return err
	}

	if err := c.transition(ctx, job, queue.StatusConcatenating, reporter); err != nil {
		return err
	}

	title := compilationTitle(opts, cctx)
	reporter.report(ctx, "Concatenating",
		fmt.Sprintf("Concatenating: %s (%d of %d)", title, len(segmentPaths), len(segmentPaths)), 80)

	listPath := filepath.Join(tempDir, "concat.txt")
	if err := ffmpeg.WriteConcatList(listPath, segmentPaths); err != nil {
		return services.Wrap(services.ErrExternalTool, "compile", "write concat list", "", err)
	}
	combined := filepath.Join(tempDir, "compilation.mp4")
	if err := c.renderer.Concat(ctx, listPath, combined); err != nil {
		return services.Wrap(services.ErrExternalTool, "compile", "concatenate", title, err)
	}

	if err := c.transition(ctx, job, queue.StatusFinalizing, reporter); err != nil {
		return err
	}
	reporter.report(ctx, "Finalizing", "Moving output and recording media", 90)

	outputPath, thumbnailPath, err := c.finalize(ctx, job, combined, title, userID, jobID)
	if err != nil {
		return err
	}

	if err := c.store.MarkCompleted(ctx, job.ID, outputPath, thumbnailPath); err != nil {
		return fmt.Errorf("mark job %d completed: %w", job.ID, err)
	}
	job.Status = queue.StatusCompleted
	job.OutputPath = outputPath
	job.ThumbnailPath = thumbnailPath

	if err := c.api.UpdateJob(ctx, jobID, workerapi.JobUpdate{
		Status:          string(queue.StatusCompleted),
		ProgressPercent: 100,
		Stage:           "Completed",
		Message:         title,
	}); err != nil {
		logger.Warn("failed to push completion to worker API", logging.Error(err))
	}

	logger.Info("compilation complete",
		logging.String("output", outputPath),
		logging.String("encoder", decision.Codec))
	return nil
}

func (c *Compiler) checkQuota(ctx context.Context, cctx *workerapi.CompilationContext, userID string) error {
	limits := cctx.TierLimits
	if limits.MaxClipsPerCompilation > 0 && len(cctx.Clips) > limits.MaxClipsPerCompilation {
		return services.Wrap(services.ErrQuota, "compile", "tier check",
			fmt.Sprintf("compilation uses %d clips but the tier allows %d", len(cctx.Clips), limits.MaxClipsPerCompilation), nil)
	}
	if limits.MaxRendersPerDay <= 0 || strings.TrimSpace(userID) == "" {
		return nil
	}
	quota, err := c.api.Quota(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch quota for user %s: %w", userID, err)
	}
	if quota.RendersToday >= limits.MaxRendersPerDay {
		return services.Wrap(services.ErrQuota, "compile", "quota check",
			fmt.Sprintf("daily render limit of %d reached", limits.MaxRendersPerDay), nil)
	}
	return nil
}

// probeEncoder runs the capability probe once per job. Only jobs on the GPU
// queue prefer hardware; the decision is recorded on the job for operators.
func (c *Compiler) probeEncoder(ctx context.Context, job *queue.Job, logger *slog.Logger) encoderprobe.Decision {
	preferred := encoderprobe.KindSoftware
	if job.Queue == config.QueueGPU {
		preferred = encoderprobe.KindHardware
	}
	decision := c.prober.Probe(ctx, c.cfg.FFmpegBinary(), preferred)

	note := "encoder: " + decision.Codec
	if decision.FallbackReason != "" {
		note += " (" + decision.FallbackReason + ")"
	}
	if err := c.store.SetEncoderNote(ctx, job.ID, note); err != nil {
		logger.Warn("failed to record encoder note", logging.Error(err))
	}
	return decision
}

func (c *Compiler) buildTimeline(opts jobspec.Envelope, cctx *workerapi.CompilationContext, job *queue.Job) ([]timeline.Segment, error) {
	clips, err := orderedClips(cctx, job)
	if err != nil {
		return nil, err
	}

	tlClips := make([]timeline.Clip, 0, len(clips))
	for _, clip := range clips {
		id, _ := strconv.ParseInt(clip.ID, 10, 64)
		tlClips = append(tlClips, timeline.Clip{
			ID:         id,
			Source:     clip.Path,
			Title:      clip.Title,
			Author:     clip.Author,
			Game:       clip.Game,
			AvatarPath: clip.AvatarPath,
		})
	}

	cfg := timeline.Config{
		Clips:         tlClips,
		BumperEnabled: opts.BumperEnabled,
		Randomize:     opts.Randomize,
	}
	if cfg.IntroPath, err = mediaPath(cctx, opts.IntroID, "intro"); err != nil {
		return nil, err
	}
	if cfg.OutroPath, err = mediaPath(cctx, opts.OutroID, "outro"); err != nil {
		return nil, err
	}
	if cfg.BumperPath, err = mediaPath(cctx, opts.BumperID, "bumper"); err != nil {
		return nil, err
	}
	for _, id := range opts.TransitionIDs {
		path, err := mediaPath(cctx, id, "transition")
		if err != nil {
			return nil, err
		}
		cfg.Transitions = append(cfg.Transitions, path)
	}

	return timeline.Build(cfg)
}

// orderedClips returns the clips to compile in the caller-given order. When
// the job names a subset of the project's clips, only those are used, in the
// job's order.
func orderedClips(cctx *workerapi.CompilationContext, job *queue.Job) ([]workerapi.Clip, error) {
	if len(job.ClipIDs) == 0 {
		return cctx.Clips, nil
	}
	byID := make(map[string]workerapi.Clip, len(cctx.Clips))
	for _, clip := range cctx.Clips {
		byID[clip.ID] = clip
	}
	ordered := make([]workerapi.Clip, 0, len(job.ClipIDs))
	for _, id := range job.ClipIDs {
		clip, ok := byID[id]
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "compile", "select clips",
				"clip "+id+" is not part of the project", nil)
		}
		ordered = append(ordered, clip)
	}
	return ordered, nil
}

func mediaPath(cctx *workerapi.CompilationContext, id, role string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil
	}
	media, ok := cctx.Media[id]
	if !ok || strings.TrimSpace(media.Path) == "" {
		return "", services.Wrap(services.ErrValidation, "compile", "lookup media",
			role+" media "+id+" has no stored record", nil)
	}
	return media.Path, nil
}

// resolveSegments rebases every canonical segment source to a local path. A
// missing segment source fails the job naming the segment; a missing avatar
// only drops that overlay's avatar.
func (c *Compiler) resolveSegments(segments []timeline.Segment, logger *slog.Logger) ([]timeline.Segment, error) {
	resolved := make([]timeline.Segment, len(segments))
	for i, seg := range segments {
		local, err := c.resolver.Resolve(seg.Source)
		if err != nil {
			return nil, fmt.Errorf("resolve %s segment %q: %w", seg.Type, seg.Label, err)
		}
		seg.Source = local
		if seg.Overlay != nil && seg.Overlay.AvatarPath != "" {
			overlay := *seg.Overlay
			if avatar, err := c.resolver.Resolve(overlay.AvatarPath); err != nil {
				logger.Warn("avatar not resolvable, dropping overlay image",
					logging.String("segment", seg.Label),
					logging.Error(err))
				overlay.AvatarPath = ""
			} else {
				overlay.AvatarPath = avatar
			}
			seg.Overlay = &overlay
		}
		resolved[i] = seg
	}
	return resolved, nil
}

// renderSegments encodes each segment sequentially, hardware first with a
// software retry, and returns the intermediate file paths in order.
func (c *Compiler) renderSegments(ctx context.Context, job *queue.Job, segments []timeline.Segment, settings ffmpeg.Settings, decision encoderprobe.Decision, tempDir string, reporter *progressReporter, logger *slog.Logger) ([]string, error) {
	total := len(segments)
	paths := make([]string, 0, total)
	softwareCodec := softwareCodecFor(c.cfg)

	for i, seg := range segments {
		message := fmt.Sprintf("Encoding: %s (%d of %d)", seg.Label, i+1, total)
		percent := 15 + 60*float64(i)/float64(total)
		reporter.report(ctx, "Encoding segments", message, percent)

		probe, err := c.inspect(ctx, c.cfg.FFprobeBinary(), seg.Source)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "compile", "inspect segment", seg.Label, err)
		}

		outPath := filepath.Join(tempDir, fmt.Sprintf("seg_%03d.mp4", i))
		spec := ffmpeg.RenderSpec{
			Input:    seg.Source,
			Output:   outPath,
			HasAudio: probe.HasAudio(),
			Overlay:  seg.Overlay,
			Settings: settings,
		}

		err = c.renderer.RenderSegment(ctx, spec)
		if err != nil && decision.Hardware() && settings.Codec != softwareCodec {
			logger.Warn("hardware encode failed, retrying segment with software encoder",
				logging.String("segment", seg.Label),
				logging.Error(err))
			spec.Settings.Codec = softwareCodec
			settings.Codec = softwareCodec
			if noteErr := c.store.SetEncoderNote(ctx, job.ID,
				"encoder: "+softwareCodec+" (hardware encode failed mid-job)"); noteErr != nil {
				logger.Warn("failed to record encoder note", logging.Error(noteErr))
			}
			err = c.renderer.RenderSegment(ctx, spec)
		}
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "compile", "render segment",
				fmt.Sprintf("%s (%d of %d)", seg.Label, i+1, total), err)
		}
		paths = append(paths, outPath)
	}
	return paths, nil
}

// finalize moves the artifact into the output directory, extracts a
// thumbnail, and records the result with the application using canonical
// paths. Completion is only reported after the media record exists.
func (c *Compiler) finalize(ctx context.Context, job *queue.Job, combined, title, userID, jobID string) (string, string, error) {
	projectDir := filepath.Join(c.cfg.Paths.OutputDir, "project-"+job.ProjectID)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, "compile", "create output dir", projectDir, err)
	}

	baseName := slugify(title)
	if baseName == "" {
		baseName = "compilation-" + jobID
	}
	outputPath := filepath.Join(projectDir, baseName+".mp4")
	if err := fileutil.MoveFile(combined, outputPath); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "compile", "move output", outputPath, err)
	}

	thumbnailPath := filepath.Join(projectDir, baseName+".jpg")
	if err := c.renderer.Thumbnail(ctx, outputPath, thumbnailPath, 640); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "compile", "extract thumbnail", title, err)
	}

	record := workerapi.CreateMediaRequest{
		ProjectID: job.ProjectID,
		Path:      c.canonicalize(outputPath),
		Type:      "compiled_video",
	}
	if checksum, err := fileutil.ChecksumSHA256(outputPath); err == nil {
		record.Checksum = checksum
	}
	if info, err := os.Stat(outputPath); err == nil {
		record.SizeBytes = info.Size()
	}
	if probe, err := c.inspect(ctx, c.cfg.FFprobeBinary(), outputPath); err == nil {
		record.DurationSeconds = probe.DurationSeconds()
		record.Width, record.Height = probe.Dimensions()
	}

	if _, err := c.api.CreateMediaFile(ctx, record); err != nil {
		return "", "", fmt.Errorf("record output media for project %s: %w", job.ProjectID, err)
	}
	if err := c.api.UpdateProjectStatus(ctx, job.ProjectID, workerapi.ProjectStatusUpdate{
		Status:        "completed",
		OutputPath:    c.canonicalize(outputPath),
		ThumbnailPath: c.canonicalize(thumbnailPath),
	}); err != nil {
		return "", "", fmt.Errorf("update project %s status: %w", job.ProjectID, err)
	}
	if strings.TrimSpace(userID) != "" {
		if err := c.api.RecordRender(ctx, userID); err != nil {
			return "", "", fmt.Errorf("record render for user %s: %w", userID, err)
		}
	}
	return outputPath, thumbnailPath, nil
}

func (c *Compiler) transition(ctx context.Context, job *queue.Job, to queue.Status, reporter *progressReporter) error {
	ok, err := c.store.Transition(ctx, job.ID, job.Status, to)
	if err != nil {
		return fmt.Errorf("transition job %d to %s: %w", job.ID, to, err)
	}
	if !ok {
		return services.Wrap(services.ErrTransient, "compile", "transition",
			fmt.Sprintf("job %d no longer in %s", job.ID, job.Status), nil)
	}
	job.Status = to
	reporter.setStatus(to)
	return nil
}

func (c *Compiler) settings(opts jobspec.Envelope, decision encoderprobe.Decision) ffmpeg.Settings {
	out := c.cfg.Output
	s := ffmpeg.Settings{
		Width:        pickInt(opts.Output.Width, out.Width),
		Height:       pickInt(opts.Output.Height, out.Height),
		FPS:          pickInt(opts.Output.FPS, out.FPS),
		Codec:        decision.Codec,
		Preset:       pickString(opts.Output.Preset, out.Preset),
		CRF:          pickInt(opts.Output.CRF, out.CRF),
		AudioCodec:   pickString(opts.Output.AudioCodec, out.AudioCodec),
		AudioBitrate: pickString(opts.Output.AudioBitrate, out.AudioBitrate),
	}
	return s
}

// canonicalize converts a local path under the instance root back to the
// host-neutral form shared over the worker API.
func (c *Compiler) canonicalize(localPath string) string {
	root := strings.TrimSpace(c.cfg.Paths.InstanceRoot)
	if root == "" {
		return localPath
	}
	rel, err := filepath.Rel(root, localPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return localPath
	}
	return "/instance/" + filepath.ToSlash(rel)
}

func softwareCodecFor(cfg *config.Config) string {
	if codec := strings.TrimSpace(cfg.Output.VideoCodec); codec != "" && !strings.Contains(codec, "nvenc") {
		return codec
	}
	return "libx264"
}

func compilationTitle(opts jobspec.Envelope, cctx *workerapi.CompilationContext) string {
	if title := strings.TrimSpace(opts.Title); title != "" {
		return title
	}
	if name := strings.TrimSpace(cctx.Project.Name); name != "" {
		return name
	}
	return "Compilation"
}

func slugify(value string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func pickInt(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}

func pickString(override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return fallback
}
