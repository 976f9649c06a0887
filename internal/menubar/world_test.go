package menubar

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/traytile/internal/event"
	"github.com/1broseidon/traytile/internal/platform"
)

const controlNS = "traytile"

var testIdentity = Identity{
	Hidden:       Tag{Namespace: controlNS, Title: "hidden"},
	AlwaysHidden: Tag{Namespace: controlNS, Title: "always-hidden"},
	Visible:      Tag{Namespace: controlNS, Title: "visible"},
}

const (
	hiddenMarker       = "@hidden"
	alwaysHiddenMarker = "@always-hidden"
	visibleMarker      = "@visible"
)

// tagFor maps the short names used in tests to tags.
func tagFor(name string) Tag {
	switch name {
	case hiddenMarker:
		return testIdentity.Hidden
	case alwaysHiddenMarker:
		return testIdentity.AlwaysHidden
	case visibleMarker:
		return testIdentity.Visible
	}
	return Tag{Namespace: "app", Title: name}
}

type fakeItem struct {
	win          platform.MenuBarWindow
	frozen       bool
	popupOnClick bool
}

type click struct {
	window platform.WindowID
	button event.Button
	state  int64
}

// fakeWorld is an in-memory menu bar. It implements platform.Backend and
// event.Sink: a command mouse-down lifts an item, the following mouse-up
// drops it at the slot nearest the drop point, and the remaining items
// are laid out contiguously from x0.
type fakeWorld struct {
	mu sync.Mutex

	x0, y0, height int
	items          []*fakeItem
	screen         platform.Screen
	windows        map[platform.WindowID]platform.WindowInfo
	nextWindow     platform.WindowID

	dragging     platform.WindowID
	clickPending *event.Event
	clicks       []click
	delivered    int

	onSnapshot func(call int)
	snapshots  int
	onDeliver  func(ev *event.Event)
}

func newWorld(x0 int, names ...string) *fakeWorld {
	w := &fakeWorld{
		x0:         x0,
		height:     20,
		windows:    make(map[platform.WindowID]platform.WindowInfo),
		nextWindow: 1000,
		screen: platform.Screen{
			Display:              platform.Display{ID: 1, Name: "test"},
			ApplicationMenuFrame: platform.Rect{X: 0, Y: 0, Width: 10, Height: 20},
		},
	}
	for i, name := range names {
		tag := tagFor(name)
		w.items = append(w.items, &fakeItem{win: platform.MenuBarWindow{
			ID:         platform.WindowID(i + 1),
			OwnerPID:   100 + i,
			SourcePID:  100 + i,
			Namespace:  tag.Namespace,
			Title:      tag.Title,
			Bounds:     platform.Rect{Width: 20, Height: w.height},
			IsOnScreen: true,
			IsMovable:  true,
		}})
	}
	w.layout()
	return w
}

// newFixedWorld places items at explicit [minX,maxX] spans, left to right.
func newFixedWorld(spans map[string][2]int, order ...string) *fakeWorld {
	w := newWorld(0, order...)
	for _, it := range w.items {
		name := it.win.Title
		if it.win.Namespace == controlNS {
			name = "@" + name
		}
		span := spans[name]
		it.win.Bounds = platform.Rect{X: span[0], Width: span[1] - span[0], Height: w.height}
	}
	return w
}

func (w *fakeWorld) layout() {
	x := w.x0
	for _, it := range w.items {
		it.win.Bounds.X = x
		x += it.win.Bounds.Width
	}
}

func (w *fakeWorld) find(id platform.WindowID) (int, *fakeItem) {
	for i, it := range w.items {
		if it.win.ID == id {
			return i, it
		}
	}
	return -1, nil
}

func (w *fakeWorld) byName(name string) *fakeItem {
	tag := tagFor(name)
	for _, it := range w.items {
		if it.win.Namespace == tag.Namespace && it.win.Title == tag.Title {
			return it
		}
	}
	return nil
}

func (w *fakeWorld) update(fn func(w *fakeWorld)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w)
}

func (w *fakeWorld) order() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.items))
	for _, it := range w.items {
		if it.win.Namespace == controlNS {
			names = append(names, "@"+it.win.Title)
		} else {
			names = append(names, it.win.Title)
		}
	}
	return names
}

func (w *fakeWorld) deliveredCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.delivered
}

func (w *fakeWorld) item(t *testing.T, name string) Item {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	it := w.byName(name)
	if it == nil {
		t.Fatalf("no item %q in world", name)
	}
	return NewItem(it.win, testIdentity)
}

func (w *fakeWorld) bounds(t *testing.T, name string) platform.Rect {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.byName(name).win.Bounds
}

// platform.Backend

func (w *fakeWorld) ActiveMenuBarScreen() (platform.Screen, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.screen, nil
}

func (w *fakeWorld) MenuBarWindows(bool) ([]platform.MenuBarWindow, error) {
	w.mu.Lock()
	w.snapshots++
	call, hook := w.snapshots, w.onSnapshot
	out := make([]platform.MenuBarWindow, 0, len(w.items))
	for _, it := range w.items {
		out = append(out, it.win)
	}
	w.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return out, nil
}

func (w *fakeWorld) MenuBarWindowIDs() ([]platform.WindowID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]platform.WindowID, 0, len(w.items))
	for _, it := range w.items {
		ids = append(ids, it.win.ID)
	}
	return ids, nil
}

func (w *fakeWorld) WindowBounds(id platform.WindowID) (platform.Rect, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, it := w.find(id); it != nil {
		return it.win.Bounds, nil
	}
	return platform.Rect{}, platform.ErrNoBounds
}

func (w *fakeWorld) OnScreenWindowIDs() ([]platform.WindowID, error) {
	wins, _ := w.OnScreenWindows()
	ids := make([]platform.WindowID, 0, len(wins))
	for _, win := range wins {
		ids = append(ids, win.ID)
	}
	return ids, nil
}

func (w *fakeWorld) OnScreenWindows() ([]platform.WindowInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []platform.WindowInfo
	for _, win := range w.windows {
		if win.IsOnScreen {
			out = append(out, win)
		}
	}
	return out, nil
}

func (w *fakeWorld) Window(id platform.WindowID) (platform.WindowInfo, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	win, ok := w.windows[id]
	return win, ok
}

func (w *fakeWorld) closePopups() {
	w.update(func(w *fakeWorld) {
		for id := range w.windows {
			delete(w.windows, id)
		}
	})
}

// event.Sink

func (w *fakeWorld) Deliver(ev *event.Event, loc event.Location) error {
	w.mu.Lock()
	hook := w.onDeliver
	w.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
	return w.deliver(ev, loc)
}

func (w *fakeWorld) deliver(ev *event.Event, _ event.Location) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delivered++

	id := platform.WindowID(ev.Field(event.FieldWindowID))
	switch {
	case ev.Type == event.TypeLeftMouseDown && ev.Flags&event.FlagCommand != 0:
		_, it := w.find(id)
		if it == nil || it.frozen {
			return nil
		}
		it.win.Bounds.Y = w.y0 + 2
		w.dragging = id

	case ev.Type.IsButtonDown():
		w.clickPending = ev.Clone()

	case ev.Type.IsButtonUp() && w.dragging != 0:
		w.drop(ev.Location.X)

	case ev.Type.IsButtonUp() && w.clickPending != nil:
		down := w.clickPending
		w.clickPending = nil
		w.clicks = append(w.clicks, click{window: id, button: ev.Button, state: down.Field(event.FieldClickState)})
		if _, it := w.find(id); it != nil && it.popupOnClick {
			w.nextWindow++
			w.windows[w.nextWindow] = platform.WindowInfo{
				ID:          w.nextWindow,
				OwnerPID:    it.win.SourcePID,
				Bounds:      platform.Rect{X: it.win.Bounds.X, Y: w.height, Width: 100, Height: 200},
				IsOnScreen:  true,
				IsPopupMenu: true,
			}
		}
	}
	return nil
}

func (w *fakeWorld) drop(x int) {
	i, it := w.find(w.dragging)
	w.dragging = 0
	if it == nil {
		return
	}
	w.items = append(w.items[:i], w.items[i+1:]...)
	w.layout()

	index := 0
	for _, other := range w.items {
		if other.win.Bounds.Center().X < x {
			index++
		}
	}
	w.items = append(w.items, nil)
	copy(w.items[index+1:], w.items[index:])
	w.items[index] = it
	it.win.Bounds.Y = w.y0
	w.layout()
}

type fakePointer struct {
	mu       sync.Mutex
	location platform.Point
	hidden   bool
	warps    []platform.Point
	fail     bool
}

func (p *fakePointer) State() (platform.PointerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return platform.PointerState{}, fmt.Errorf("no pointer")
	}
	return platform.PointerState{Location: p.location}, nil
}

func (p *fakePointer) Hide() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = true
	return nil
}

func (p *fakePointer) Show() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = false
	return nil
}

func (p *fakePointer) Warp(pt platform.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warps = append(p.warps, pt)
	return nil
}

type fakeInjectors struct {
	mu            sync.Mutex
	stops, starts int
}

func (f *fakeInjectors) StopAll() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeInjectors) StartAll() {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Alert(_ context.Context, _, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

type harness struct {
	world     *fakeWorld
	manager   *Manager
	pipeline  *event.Pipeline
	pointer   *fakePointer
	injectors *fakeInjectors
	notifier  *fakeNotifier
}

func testTiming() Timing {
	return Timing{
		MoveTimeout:      100 * time.Millisecond,
		ClickTimeout:     200 * time.Millisecond,
		MaxMoveAttempts:  3,
		EventSleep:       time.Millisecond,
		ResponsePoll:     time.Millisecond,
		ShowSettle:       time.Millisecond,
		PopupSettle:      20 * time.Millisecond,
		RehideRetry:      time.Hour,
		MoveSkipWindow:   time.Second,
		TempShowInterval: time.Hour,
	}
}

func newHarness(t *testing.T, w *fakeWorld, tune ...func(*Options)) *harness {
	t.Helper()

	pipeline := event.NewPipeline(w, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pipeline.Run(ctx)
	}()

	h := &harness{
		world:     w,
		pipeline:  pipeline,
		pointer:   &fakePointer{location: platform.Point{X: 500, Y: 300}},
		injectors: &fakeInjectors{},
		notifier:  &fakeNotifier{},
	}
	opts := Options{
		Backend:    w,
		Pointer:    h.pointer,
		Dispatcher: pipeline,
		Injectors:  h.injectors,
		Notifier:   h.notifier,
		Identity:   testIdentity,
		Timing:     testTiming(),
	}
	for _, fn := range tune {
		fn(&opts)
	}
	h.manager = NewManager(opts)

	t.Cleanup(func() {
		h.manager.Close()
		cancel()
		<-done
	})
	return h
}

func names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Tag.Namespace == controlNS {
			out = append(out, "@"+it.Tag.Title)
		} else {
			out = append(out, it.Tag.Title)
		}
	}
	return out
}

func equalNames(a, b []string) bool {
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
