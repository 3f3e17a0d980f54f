package compile_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/compile"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/encoderprobe"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/ffmpeg"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/jobspec"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/media/ffprobe"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/services"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/testsupport"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/workerapi"
)

type fakeRenderer struct {
	mu           sync.Mutex
	renderCodecs []string
	failCodec    string
}

func (f *fakeRenderer) RenderSegment(_ context.Context, spec ffmpeg.RenderSpec) error {
	f.mu.Lock()
	f.renderCodecs = append(f.renderCodecs, spec.Settings.Codec)
	f.mu.Unlock()
	if f.failCodec != "" && spec.Settings.Codec == f.failCodec {
		return errors.New("encoder rejected frame")
	}
	return os.WriteFile(spec.Output, []byte("segment"), 0o644)
}

func (f *fakeRenderer) Concat(_ context.Context, _, outputPath string) error {
	return os.WriteFile(outputPath, []byte("compilation"), 0o644)
}

func (f *fakeRenderer) Thumbnail(_ context.Context, _, outputPath string, _ int) error {
	return os.WriteFile(outputPath, []byte("thumb"), 0o644)
}

type fakeProber struct {
	decision encoderprobe.Decision
}

func (f fakeProber) Probe(context.Context, string, encoderprobe.Kind) encoderprobe.Decision {
	return f.decision
}

func fakeInspect(context.Context, string, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
		},
		Format: ffprobe.Format{Duration: "42.5"},
	}, nil
}

type apiState struct {
	mu             sync.Mutex
	context        workerapi.CompilationContext
	quota          workerapi.Quota
	mediaCreated   []workerapi.CreateMediaRequest
	projectUpdates []workerapi.ProjectStatusUpdate
	rendersLogged  int
}

// patternMux is a minimal stand-in for the Go 1.22+ ServeMux method and
// wildcard patterns, which the toolchain used to run these tests predates.
type patternMux struct {
	routes []patternRoute
}

type patternRoute struct {
	method   string
	segments []string
	fn       http.HandlerFunc
}

func (m *patternMux) HandleFunc(pattern string, fn http.HandlerFunc) {
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		method, path = "", pattern
	}
	m.routes = append(m.routes, patternRoute{
		method:   method,
		segments: strings.Split(strings.Trim(path, "/"), "/"),
		fn:       fn,
	})
}

func (m *patternMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	got := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for _, rt := range m.routes {
		if rt.method != "" && rt.method != r.Method {
			continue
		}
		if len(rt.segments) != len(got) {
			continue
		}
		match := true
		for i, seg := range rt.segments {
			if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
				continue
			}
			if seg != got[i] {
				match = false
				break
			}
		}
		if match {
			rt.fn(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *apiState) handler(t *testing.T) http.Handler {
	mux := new(patternMux)
	mux.HandleFunc("GET /api/worker/compilation-context", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(s.context)
	})
	mux.HandleFunc("GET /api/worker/users/{id}/quota", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(s.quota)
	})
	mux.HandleFunc("POST /api/worker/media", func(w http.ResponseWriter, r *http.Request) {
		var req workerapi.CreateMediaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode media request: %v", err)
		}
		s.mu.Lock()
		s.mediaCreated = append(s.mediaCreated, req)
		s.mu.Unlock()
		json.NewEncoder(w).Encode(workerapi.Media{ID: "m-out", Path: req.Path})
	})
	mux.HandleFunc("PUT /api/worker/projects/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var update workerapi.ProjectStatusUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			t.Errorf("decode project update: %v", err)
		}
		s.mu.Lock()
		s.projectUpdates = append(s.projectUpdates, update)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/worker/users/{id}/record-render", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		s.rendersLogged++
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /api/worker/jobs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

type fixture struct {
	cfg      *config.Config
	store    *queue.Store
	api      *apiState
	compiler *compile.Compiler
	renderer *fakeRenderer
	job      *queue.Job
}

func writeInstanceFile(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	local := filepath.Join(cfg.Paths.InstanceRoot, filepath.FromSlash(rel))
	testsupport.WriteFile(t, local, 64)
	return "/instance/" + rel
}

func newFixture(t *testing.T, decision encoderprobe.Decision, opts jobspec.Envelope) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	// Output under the instance root so recorded paths canonicalize.
	cfg.Paths.OutputDir = filepath.Join(cfg.Paths.InstanceRoot, "output")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	clipA := writeInstanceFile(t, cfg, "uploads/u1/p1/clip-5.mp4")
	clipB := writeInstanceFile(t, cfg, "uploads/u1/p1/clip-2.mp4")

	state := &apiState{
		context: workerapi.CompilationContext{
			Project: workerapi.Project{ID: "p1", UserID: "u1", Name: "Friday Night"},
			Clips: []workerapi.Clip{
				{ID: "5", Title: "Ace", Author: "streamer", Game: "Tetris", Path: clipA},
				{ID: "2", Title: "Clutch", Path: clipB},
			},
			TierLimits: workerapi.TierLimits{MaxClipsPerCompilation: 10, MaxRendersPerDay: 5},
			Media:      map[string]workerapi.Media{},
		},
		quota: workerapi.Quota{RendersToday: 0},
	}
	server := httptest.NewServer(state.handler(t))
	t.Cleanup(server.Close)
	cfg.API.BaseURL = server.URL
	cfg.API.Token = "test-token"

	apiClient, err := workerapi.New(cfg)
	if err != nil {
		t.Fatalf("workerapi.New: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	optionsJSON, err := opts.Encode()
	if err != nil {
		t.Fatalf("encode options: %v", err)
	}
	if _, err := store.Enqueue(context.Background(), queue.EnqueueRequest{
		ProjectID:   "p1",
		ClipIDs:     []string{"5", "2"},
		OptionsJSON: optionsJSON,
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := store.Claim(context.Background(), "test-worker", config.QueueGeneric)
	if err != nil || job == nil {
		t.Fatalf("claim: job=%v err=%v", job, err)
	}

	renderer := &fakeRenderer{}
	compiler := compile.New(cfg, store, apiClient, logging.NewNop(),
		compile.WithRenderer(renderer),
		compile.WithProber(fakeProber{decision: decision}),
		compile.WithInspector(fakeInspect))

	return &fixture{cfg: cfg, store: store, api: state, compiler: compiler, renderer: renderer, job: job}
}

func TestExecuteCompletesJob(t *testing.T) {
	fx := newFixture(t, encoderprobe.Decision{Kind: encoderprobe.KindSoftware, Codec: "libx264"}, jobspec.Envelope{})

	if err := fx.compiler.Execute(context.Background(), fx.job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	stored, err := fx.store.GetByID(context.Background(), fx.job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.OutputPath == "" {
		t.Fatal("output path not recorded")
	}
	if _, err := os.Stat(stored.OutputPath); err != nil {
		t.Fatalf("output artifact missing: %v", err)
	}

	if len(fx.api.mediaCreated) != 1 {
		t.Fatalf("media records = %d", len(fx.api.mediaCreated))
	}
	if got := fx.api.mediaCreated[0].Path; !strings.HasPrefix(got, "/instance/") {
		t.Fatalf("recorded path not canonical: %q", got)
	}
	if len(fx.api.projectUpdates) != 1 || fx.api.projectUpdates[0].Status != "completed" {
		t.Fatalf("project updates = %+v", fx.api.projectUpdates)
	}
	if fx.api.rendersLogged != 1 {
		t.Fatalf("renders logged = %d", fx.api.rendersLogged)
	}
}

func TestExecuteFallsBackToSoftwareMidJob(t *testing.T) {
	fx := newFixture(t, encoderprobe.Decision{Kind: encoderprobe.KindHardware, Codec: "h264_nvenc"}, jobspec.Envelope{})
	fx.renderer.failCodec = "h264_nvenc"

	if err := fx.compiler.Execute(context.Background(), fx.job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	sawHardware := false
	sawSoftware := false
	for _, codec := range fx.renderer.renderCodecs {
		if codec == "h264_nvenc" {
			sawHardware = true
		}
		if codec == "libx264" {
			sawSoftware = true
		}
	}
	if !sawHardware || !sawSoftware {
		t.Fatalf("expected hardware attempt then software retry, got %v", fx.renderer.renderCodecs)
	}
}

func TestExecuteQuotaViolationFailsWithQuotaClass(t *testing.T) {
	fx := newFixture(t, encoderprobe.Decision{Kind: encoderprobe.KindSoftware, Codec: "libx264"}, jobspec.Envelope{})
	fx.api.quota = workerapi.Quota{RendersToday: 5}

	err := fx.compiler.Execute(context.Background(), fx.job)
	if err == nil {
		t.Fatal("expected quota error")
	}
	if !errors.Is(err, services.ErrQuota) {
		t.Fatalf("expected quota classification, got %v", err)
	}
}

func TestExecuteMissingClipNamesMedia(t *testing.T) {
	fx := newFixture(t, encoderprobe.Decision{Kind: encoderprobe.KindSoftware, Codec: "libx264"}, jobspec.Envelope{})
	missing := "/instance/uploads/u1/p1/gone.mp4"
	fx.api.context.Clips[1].Path = missing

	err := fx.compiler.Execute(context.Background(), fx.job)
	if err == nil {
		t.Fatal("expected resolution failure")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("error should name the canonical path, got %v", err)
	}
}

func TestExecuteProgressIsMonotonic(t *testing.T) {
	fx := newFixture(t, encoderprobe.Decision{Kind: encoderprobe.KindSoftware, Codec: "libx264"}, jobspec.Envelope{})
	// Simulate a redelivered job that already reported progress.
	if _, err := fx.store.UpdateProgress(context.Background(), fx.job.ID, "Encoding", "earlier attempt", 40); err != nil {
		t.Fatalf("seed progress: %v", err)
	}
	fx.job.ProgressPercent = 40

	if err := fx.compiler.Execute(context.Background(), fx.job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	stored, err := fx.store.GetByID(context.Background(), fx.job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.ProgressPercent < 40 {
		t.Fatalf("progress regressed to %v", stored.ProgressPercent)
	}
}

func TestExecuteRendersTimelineWithBumperAndIntro(t *testing.T) {
	intro := jobspec.Envelope{IntroID: "i1", BumperID: "b1", BumperEnabled: true}
	fx := newFixture(t, encoderprobe.Decision{Kind: encoderprobe.KindSoftware, Codec: "libx264"}, intro)
	fx.api.context.Media["i1"] = workerapi.Media{ID: "i1", Path: writeInstanceFile(t, fx.cfg, "system/intro.mp4")}
	fx.api.context.Media["b1"] = workerapi.Media{ID: "b1", Path: writeInstanceFile(t, fx.cfg, "system/bumper.mp4")}

	if err := fx.compiler.Execute(context.Background(), fx.job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// intro, bumper, clip, bumper, clip
	if got := len(fx.renderer.renderCodecs); got != 5 {
		t.Fatalf("rendered %d segments, want 5", got)
	}
}
