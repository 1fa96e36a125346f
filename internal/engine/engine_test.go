package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/snapcook/internal/capture"
	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/extract"
	"github.com/hammamikhairi/snapcook/internal/gpt"
	"github.com/hammamikhairi/snapcook/internal/logger"
	"github.com/hammamikhairi/snapcook/internal/storage"
)

const toastReply = `[{"name":"Toast","duration":"5 min","difficulty":"Easy","ingredients":["bread"],"instructions":["toast it"]}]`

// fakeModel answers every call with reply/err, optionally waiting on gate.
type fakeModel struct {
	reply string
	err   error
	gate  chan struct{}

	mu    sync.Mutex
	calls [][]domain.Message
}

func (m *fakeModel) Complete(ctx context.Context, msgs []domain.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msgs)
	m.mu.Unlock()
	if m.gate != nil {
		<-m.gate
	}
	return m.reply, m.err
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *fakeModel) lastImage() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	last := m.calls[len(m.calls)-1]
	return last[len(last)-1].Image
}

type fakeStore struct {
	mu      sync.Mutex
	batches [][]domain.Recipe
	err     error
}

func (s *fakeStore) Commit(ctx context.Context, records []domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, records)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type recordingNotifier struct {
	mu     sync.Mutex
	normal []string
	urgent []string
}

func (n *recordingNotifier) Notify(ctx context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.normal = append(n.normal, msg)
	return nil
}

func (n *recordingNotifier) NotifyUrgent(ctx context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urgent = append(n.urgent, msg)
	return nil
}

func setupOrchestrator(t *testing.T, model *fakeModel, opts ...Option) (*Orchestrator, *fakeStore) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	agent := gpt.NewAgent(model, gpt.DefaultPantry(), log)
	store := &fakeStore{}
	return New(agent, store, domain.NewSession("alice"), log, opts...), store
}

// phasesUntilIdle collects published phases until a terminal phase has
// been followed by Idle.
func phasesUntilIdle(t *testing.T, ch <-chan State) []Phase {
	t.Helper()
	var out []Phase
	terminal := false
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			out = append(out, s.Phase)
			if s.Phase == PhaseSucceeded || s.Phase == PhaseFailed {
				terminal = true
			}
			if terminal && s.Phase == PhaseIdle {
				return out
			}
		case <-deadline:
			t.Fatalf("timed out, phases so far: %v", out)
		}
	}
}

func equalPhases(a, b []Phase) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStartRejections(t *testing.T) {
	tests := []struct {
		name    string
		session domain.Session
		input   Input
		wantErr error
	}{
		{"empty ingredient list", domain.NewSession("alice"), IngredientInput{}, domain.ErrEmptyInput},
		{"blank ingredients", domain.NewSession("alice"), IngredientInput{Ingredients: []string{" ", ""}}, domain.ErrEmptyInput},
		{"image without data", domain.NewSession("alice"), ImageInput{}, domain.ErrEmptyInput},
		{"signed out", domain.Session{}, IngredientInput{Ingredients: []string{"egg"}}, domain.ErrNotSignedIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{reply: toastReply}
			o, store := setupOrchestrator(t, model)
			o.SetSession(tt.session)
			states, cancel := o.Subscribe()
			defer cancel()

			if err := o.Start(context.Background(), tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Start err = %v, want %v", err, tt.wantErr)
			}
			o.Wait()

			select {
			case s := <-states:
				if !errors.Is(s.LastError, tt.wantErr) || s.Phase != PhaseIdle {
					t.Errorf("published %v / %v", s.Phase, s.LastError)
				}
			default:
				t.Error("rejection not published")
			}
			if model.callCount() != 0 {
				t.Errorf("model called %d times", model.callCount())
			}
			if store.count() != 0 {
				t.Errorf("commits = %d", store.count())
			}
		})
	}
}

func TestStartSuccess(t *testing.T) {
	model := &fakeModel{reply: "Here you go:\n```json\n" + toastReply + "\n```"}
	o, store := setupOrchestrator(t, model)
	states, cancel := o.Subscribe()
	defer cancel()

	if err := o.Start(context.Background(), IngredientInput{Ingredients: []string{"bread"}}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := phasesUntilIdle(t, states)
	want := []Phase{PhaseRequesting, PhaseSucceeded, PhaseIdle}
	if !equalPhases(got, want) {
		t.Fatalf("phases = %v, want %v", got, want)
	}

	s := o.State()
	if s.Loading || s.LastError != nil {
		t.Errorf("state = %+v", s)
	}
	if len(s.LastResult) != 1 || s.LastResult[0].Name != "Toast" {
		t.Fatalf("result = %+v", s.LastResult)
	}
	if s.LastResult[0].UserID != "alice" || s.LastResult[0].ID == "" {
		t.Errorf("record not bound to session: %+v", s.LastResult[0])
	}
	if s.Request == nil || s.Request.Kind != domain.KindIngredients || !strings.HasPrefix(s.Request.ID, "ingredients-") {
		t.Errorf("request = %+v", s.Request)
	}
	if store.count() != 1 {
		t.Errorf("commit batches = %d, want 1", store.count())
	}
}

func TestStartFailure(t *testing.T) {
	tests := []struct {
		name     string
		model    *fakeModel
		storeErr error
		wantErr  error
	}{
		{"model error", &fakeModel{err: errors.New("connection reset")}, nil, nil},
		{"malformed reply", &fakeModel{reply: "not json at all"}, nil, extract.ErrMalformed},
		{"commit error", &fakeModel{reply: toastReply}, errors.New("disk full"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, store := setupOrchestrator(t, tt.model)
			store.err = tt.storeErr
			states, cancel := o.Subscribe()
			defer cancel()

			if err := o.Start(context.Background(), HealthyInput{}); err != nil {
				t.Fatalf("Start: %v", err)
			}
			got := phasesUntilIdle(t, states)
			if want := []Phase{PhaseRequesting, PhaseFailed, PhaseIdle}; !equalPhases(got, want) {
				t.Fatalf("phases = %v, want %v", got, want)
			}

			s := o.State()
			if s.LastError == nil || s.Message() == "" || s.Loading {
				t.Fatalf("state = %+v", s)
			}
			if tt.wantErr != nil && !errors.Is(s.LastError, tt.wantErr) {
				t.Errorf("err = %v, want %v", s.LastError, tt.wantErr)
			}
			if store.count() != 0 {
				t.Errorf("commit batches = %d, want 0", store.count())
			}
		})
	}
}

func TestRejectedStartKeepsInFlightResult(t *testing.T) {
	model := &fakeModel{reply: toastReply, gate: make(chan struct{})}
	o, store := setupOrchestrator(t, model)
	ctx := context.Background()

	if err := o.Start(ctx, IngredientInput{Ingredients: []string{"bread"}}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if !o.State().Loading {
		t.Fatal("not loading while requesting")
	}
	if err := o.Start(ctx, IngredientInput{Ingredients: []string{"rice"}}); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("second Start err = %v, want ErrBusy", err)
	}
	if s := o.State(); s.Phase != PhaseRequesting || !strings.Contains(s.Request.ID, "ingredients") {
		t.Fatalf("rejection disturbed the request: %+v", s)
	}

	close(model.gate)
	o.Wait()

	s := o.State()
	if s.Phase != PhaseIdle || s.LastError != nil || len(s.LastResult) != 1 || s.LastResult[0].Name != "Toast" {
		t.Errorf("final state = %+v", s)
	}
	if model.callCount() != 1 || store.count() != 1 {
		t.Errorf("model calls = %d, commits = %d", model.callCount(), store.count())
	}
}

func TestImageInputArchivesReceipt(t *testing.T) {
	blobs := storage.NewMemoryBlobs()
	model := &fakeModel{reply: toastReply}
	o, _ := setupOrchestrator(t, model, WithArchive(blobs))

	img := capture.Image{JPEG: []byte{0xff, 0xd8, 0xff}}
	if err := o.Start(context.Background(), ImageInput{Image: img}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	o.Wait()

	if !bytes.Equal(model.lastImage(), img.JPEG) {
		t.Error("image not sent to the model")
	}
	keys := blobs.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "receipts/alice/") {
		t.Errorf("archived keys = %v", keys)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCaptureAndGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.png")
	writePNG(t, path)

	model := &fakeModel{reply: toastReply}
	o, store := setupOrchestrator(t, model)
	bridge := capture.NewBridge(capture.NewFileDevice(path), logger.New(logger.LevelOff, nil))

	if err := o.CaptureAndGenerate(context.Background(), bridge); err != nil {
		t.Fatalf("CaptureAndGenerate: %v", err)
	}
	o.Wait()

	jpeg := model.lastImage()
	if len(jpeg) < 2 || jpeg[0] != 0xff || jpeg[1] != 0xd8 {
		t.Errorf("model did not receive a JPEG")
	}
	if store.count() != 1 {
		t.Errorf("commits = %d", store.count())
	}
}

func TestCaptureFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing file", filepath.Join(dir, "nope.jpg"), capture.ErrAuthorizationDenied},
		{"directory", dir, capture.ErrInputRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{reply: toastReply}
			notes := &recordingNotifier{}
			o, store := setupOrchestrator(t, model, WithNotifier(notes))
			states, cancel := o.Subscribe()
			defer cancel()
			bridge := capture.NewBridge(capture.NewFileDevice(tt.path), logger.New(logger.LevelOff, nil))

			err := o.CaptureAndGenerate(context.Background(), bridge)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			got := phasesUntilIdle(t, states)
			if want := []Phase{PhaseFailed, PhaseIdle}; !equalPhases(got, want) {
				t.Errorf("phases = %v, want %v", got, want)
			}
			if model.callCount() != 0 || store.count() != 0 {
				t.Errorf("model calls = %d, commits = %d", model.callCount(), store.count())
			}
			if len(notes.urgent) != 1 {
				t.Errorf("urgent notes = %v", notes.urgent)
			}
		})
	}
}

// stalledDevice is authorized but never reports a capture.
type stalledDevice struct {
	once  sync.Once
	armed chan struct{}
}

func (d *stalledDevice) Name() string                    { return "stalled" }
func (d *stalledDevice) Status() capture.AuthStatus      { return capture.AuthGranted }
func (d *stalledDevice) Request(context.Context) bool    { return true }
func (d *stalledDevice) Configure(context.Context) error { return nil }
func (d *stalledDevice) Capture(func(capture.Result))    { d.once.Do(func() { close(d.armed) }) }

func TestStartDuringPendingCapture(t *testing.T) {
	model := &fakeModel{reply: toastReply}
	o, store := setupOrchestrator(t, model)
	dev := &stalledDevice{armed: make(chan struct{})}
	bridge := capture.NewBridge(dev, logger.New(logger.LevelOff, nil))

	ctx, cancelCapture := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- o.CaptureAndGenerate(ctx, bridge) }()

	select {
	case <-dev.armed:
	case <-time.After(2 * time.Second):
		t.Fatal("capture never armed the device")
	}

	if err := o.Start(context.Background(), IngredientInput{Ingredients: []string{"eggs"}}); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("Start during capture err = %v, want ErrBusy", err)
	}
	if err := o.CaptureAndGenerate(context.Background(), bridge); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("second capture err = %v, want ErrBusy", err)
	}

	cancelCapture()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("capture err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not return after cancel")
	}
	if s := o.State(); s.Phase != PhaseIdle || s.Loading || s.LastError == nil {
		t.Fatalf("state after capture failure = %+v", s)
	}
	if model.callCount() != 0 || store.count() != 0 {
		t.Fatalf("model calls = %d, commits = %d", model.callCount(), store.count())
	}

	if err := o.Start(context.Background(), IngredientInput{Ingredients: []string{"eggs"}}); err != nil {
		t.Fatalf("Start after capture: %v", err)
	}
	o.Wait()
	if model.callCount() != 1 || store.count() != 1 {
		t.Errorf("model calls = %d, commits = %d", model.callCount(), store.count())
	}
}

func TestStartNilInput(t *testing.T) {
	model := &fakeModel{reply: toastReply}
	o, _ := setupOrchestrator(t, model)
	if err := o.Start(context.Background(), nil); !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if s := o.State(); s.Phase != PhaseIdle || s.Loading {
		t.Errorf("state = %+v", s)
	}
	if model.callCount() != 0 {
		t.Errorf("model called %d times", model.callCount())
	}
}

func TestNotifierOnSuccess(t *testing.T) {
	notes := &recordingNotifier{}
	o, _ := setupOrchestrator(t, &fakeModel{reply: toastReply}, WithNotifier(notes))
	o.Start(context.Background(), IngredientInput{Ingredients: []string{"bread"}})
	o.Wait()

	notes.mu.Lock()
	defer notes.mu.Unlock()
	if len(notes.normal) != 1 || !strings.Contains(notes.normal[0], "Toast") {
		t.Errorf("notes = %v", notes.normal)
	}
}

func TestSplitIngredients(t *testing.T) {
	got := SplitIngredients("eggs, milk\n\nflour ; ")
	want := []string{"eggs", "milk", "flour"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{domain.ErrBusy, "Still working"},
		{&extract.MalformedError{Snippet: "x"}, "Couldn't read recipes"},
		{capture.ErrCaptureFailed, "photo could not be taken"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := Describe(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("Describe(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}
