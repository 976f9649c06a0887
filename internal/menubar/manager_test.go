package menubar

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheItemsIfNeeded(t *testing.T) {
	w := newWorld(0, "a", hiddenMarker, "b", "c")
	h := newHarness(t, w)
	ctx := context.Background()

	if err := h.manager.CacheItemsRegardless(ctx, nil); err != nil {
		t.Fatalf("CacheItemsRegardless: %v", err)
	}

	var passes atomic.Int32
	defer h.manager.Subscribe(func(ItemCache) { passes.Add(1) })()

	steps := []struct {
		name          string
		mutate        func(w *fakeWorld)
		wantRefreshed bool
		wantVisible   []string
	}{
		{name: "unchanged", wantRefreshed: false, wantVisible: []string{"b", "c"}},
		{
			name: "reordered",
			mutate: func(w *fakeWorld) {
				w.items[2], w.items[3] = w.items[3], w.items[2]
				w.layout()
			},
			wantRefreshed: true,
			wantVisible:   []string{"c", "b"},
		},
		{name: "unchanged again", wantRefreshed: false, wantVisible: []string{"c", "b"}},
		{
			name: "reordered back",
			mutate: func(w *fakeWorld) {
				w.items[2], w.items[3] = w.items[3], w.items[2]
				w.layout()
			},
			wantRefreshed: true,
			wantVisible:   []string{"b", "c"},
		},
		{
			name: "item removed",
			mutate: func(w *fakeWorld) {
				w.items = w.items[:3]
			},
			wantRefreshed: true,
			wantVisible:   []string{"b"},
		},
	}

	wantPasses := int32(0)
	for _, step := range steps {
		if step.mutate != nil {
			w.update(step.mutate)
		}
		refreshed, err := h.manager.CacheItemsIfNeeded(ctx)
		if err != nil {
			t.Fatalf("%s: CacheItemsIfNeeded: %v", step.name, err)
		}
		if refreshed != step.wantRefreshed {
			t.Fatalf("%s: refreshed = %v, want %v", step.name, refreshed, step.wantRefreshed)
		}
		if refreshed {
			wantPasses++
		}
		if got := passes.Load(); got != wantPasses {
			t.Fatalf("%s: %d cache passes published, want %d", step.name, got, wantPasses)
		}
		if got := names(h.manager.ItemCache().Items(SectionVisible)); !equalNames(got, step.wantVisible) {
			t.Fatalf("%s: visible = %v, want %v", step.name, got, step.wantVisible)
		}
	}
}

// The skip window is the only protection against caching mid-move. This
// test pins down that boundary: inside the window a stale order is left
// alone, and the first poll after it corrects the cache.
func TestCacheSkipWindowAfterMove(t *testing.T) {
	w := newWorld(0, "a", hiddenMarker, "b", "c")
	h := newHarness(t, w, func(o *Options) { o.Timing.MoveSkipWindow = 50 * time.Millisecond })
	ctx := context.Background()

	if err := h.manager.CacheItemsRegardless(ctx, nil); err != nil {
		t.Fatalf("CacheItemsRegardless: %v", err)
	}
	if err := h.manager.Move(ctx, w.item(t, "b"), RightOf(w.item(t, "c"))); err != nil {
		t.Fatalf("Move: %v", err)
	}

	refreshed, err := h.manager.CacheItemsIfNeeded(ctx)
	if err != nil {
		t.Fatalf("CacheItemsIfNeeded: %v", err)
	}
	if refreshed {
		t.Fatalf("cache refreshed inside the move skip window")
	}
	if got := names(h.manager.ItemCache().Items(SectionVisible)); !equalNames(got, []string{"b", "c"}) {
		t.Fatalf("visible inside window = %v, want the stale [b c]", got)
	}

	time.Sleep(60 * time.Millisecond)
	refreshed, err = h.manager.CacheItemsIfNeeded(ctx)
	if err != nil {
		t.Fatalf("CacheItemsIfNeeded: %v", err)
	}
	if !refreshed {
		t.Fatalf("cache not refreshed after the skip window")
	}
	if got := names(h.manager.ItemCache().Items(SectionVisible)); !equalNames(got, []string{"c", "b"}) {
		t.Fatalf("visible after window = %v, want [c b]", got)
	}
}

// A cache pass that races a concurrent move may publish a mid-move view;
// the following forced pass must converge on the final layout.
func TestConcurrentMoveAndCacheConverge(t *testing.T) {
	w := newWorld(0, "a", hiddenMarker, "b", "c", "d")
	h := newHarness(t, w)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := h.manager.Move(ctx, w.item(t, "b"), RightOf(w.item(t, "d"))); err != nil {
			t.Errorf("Move: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := h.manager.CacheItemsRegardless(ctx, nil); err != nil {
			t.Errorf("CacheItemsRegardless: %v", err)
		}
	}()
	wg.Wait()

	cache := h.manager.ItemCache()
	if cache.Len() == 0 {
		t.Fatalf("racing cache pass published nothing")
	}

	if err := h.manager.CacheItemsRegardless(ctx, nil); err != nil {
		t.Fatalf("CacheItemsRegardless: %v", err)
	}
	if got := names(h.manager.ItemCache().Items(SectionVisible)); !equalNames(got, []string{"c", "d", "b"}) {
		t.Fatalf("visible = %v, want [c d b]", got)
	}
}

func TestCacheItemsRegardlessSupersedesInFlightPass(t *testing.T) {
	w := newWorld(0, "a", hiddenMarker, "b")
	release := make(chan struct{})
	started := make(chan struct{})
	w.onSnapshot = func(call int) {
		if call == 1 {
			close(started)
			<-release
		}
	}
	h := newHarness(t, w)

	var published atomic.Int32
	defer h.manager.Subscribe(func(ItemCache) { published.Add(1) })()

	ctx := context.Background()
	errs := make(chan error, 2)
	go func() { errs <- h.manager.CacheItemsRegardless(ctx, nil) }()
	<-started

	go func() { errs <- h.manager.CacheItemsRegardless(ctx, nil) }()
	waitForGen(t, h.manager.cacheSlot, 2)
	close(release)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("CacheItemsRegardless: %v", err)
		}
	}
	if got := published.Load(); got != 1 {
		t.Fatalf("%d passes published, want only the newest", got)
	}
	if h.manager.ItemCache().Len() != 2 {
		t.Fatalf("newest pass did not publish a full cache")
	}
}

func TestTaskSlot(t *testing.T) {
	var slot taskSlot
	ctx := context.Background()

	firstStarted := make(chan struct{})
	firstCancelled := make(chan struct{})
	var secondRan atomic.Bool

	errs := make(chan error, 2)
	go func() {
		errs <- slot.run(ctx, func(taskCtx context.Context) {
			close(firstStarted)
			<-taskCtx.Done()
			close(firstCancelled)
		})
	}()
	<-firstStarted

	go func() {
		errs <- slot.run(ctx, func(context.Context) {
			select {
			case <-firstCancelled:
			default:
				t.Errorf("second task started before the first returned")
			}
			secondRan.Store(true)
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("run: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("run did not return")
		}
	}
	if !secondRan.Load() {
		t.Fatalf("second task did not run")
	}
}

func TestTaskSlotCallerCancellation(t *testing.T) {
	var slot taskSlot
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	taskErr := make(chan error, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- slot.run(ctx, func(taskCtx context.Context) {
			close(started)
			<-release
			taskErr <- taskCtx.Err()
		})
	}()
	<-started
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("run error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not return after cancellation")
	}

	close(release)
	if err := <-taskErr; err != nil {
		t.Fatalf("task context = %v after the caller gave up, want it still live", err)
	}
}

func TestTaskSlotOutcomes(t *testing.T) {
	tests := []struct {
		name string
		// cancelNewest cancels the newest submitter's context while the
		// older submitter keeps waiting.
		cancelNewest bool
		closeSlot    bool
		wantRan      bool
		wantErr      error
	}{
		{name: "newest completes", wantRan: true},
		{name: "newest submitter gives up", cancelNewest: true, wantRan: true},
		{name: "slot closed", closeSlot: true, wantErr: context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lifetime, stop := context.WithCancel(context.Background())
			defer stop()
			slot := newTaskSlot(lifetime)

			firstStarted := make(chan struct{})
			firstErr := make(chan error, 1)
			go func() {
				firstErr <- slot.run(context.Background(), func(taskCtx context.Context) {
					close(firstStarted)
					<-taskCtx.Done()
				})
			}()
			<-firstStarted

			newestCtx, cancelNewest := context.WithCancel(context.Background())
			defer cancelNewest()
			release := make(chan struct{})
			var ran atomic.Bool
			newestErr := make(chan error, 1)
			go func() {
				newestErr <- slot.run(newestCtx, func(taskCtx context.Context) {
					<-release
					if taskCtx.Err() == nil {
						ran.Store(true)
					}
				})
			}()
			waitForGen(t, slot, 2)

			if tt.cancelNewest {
				cancelNewest()
				if err := <-newestErr; err != context.Canceled {
					t.Fatalf("newest run error = %v, want context.Canceled", err)
				}
			}
			if tt.closeSlot {
				stop()
			}
			close(release)

			select {
			case err := <-firstErr:
				if err != tt.wantErr {
					t.Fatalf("first run error = %v, want %v", err, tt.wantErr)
				}
			case <-time.After(time.Second):
				t.Fatalf("first run did not return")
			}
			if ran.Load() != tt.wantRan {
				t.Fatalf("newest task ran = %v, want %v", ran.Load(), tt.wantRan)
			}
		})
	}
}

func waitForGen(t *testing.T, slot *taskSlot, gen uint64) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		slot.mu.Lock()
		got := slot.gen
		slot.mu.Unlock()
		if got >= gen {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("slot generation = %d, want %d", got, gen)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCacheItemsRegardlessAbandonedSupersederStillPublishes(t *testing.T) {
	w := newWorld(0, "a", hiddenMarker, "b")
	release := make(chan struct{})
	started := make(chan struct{})
	w.onSnapshot = func(call int) {
		if call == 1 {
			close(started)
			<-release
		}
	}
	h := newHarness(t, w)

	var published atomic.Int32
	defer h.manager.Subscribe(func(ItemCache) { published.Add(1) })()

	firstErr := make(chan error, 1)
	go func() { firstErr <- h.manager.CacheItemsRegardless(context.Background(), nil) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	secondErr := make(chan error, 1)
	go func() { secondErr <- h.manager.CacheItemsRegardless(ctx, nil) }()
	waitForGen(t, h.manager.cacheSlot, 2)
	cancel()
	if err := <-secondErr; err != context.Canceled {
		t.Fatalf("second caller error = %v, want context.Canceled", err)
	}
	close(release)

	if err := <-firstErr; err != nil {
		t.Fatalf("first caller error = %v, want nil", err)
	}
	if got := published.Load(); got != 1 {
		t.Fatalf("%d passes published, want 1", got)
	}
	if h.manager.ItemCache().Len() != 2 {
		t.Fatalf("first caller returned before a cache was published")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	w := newWorld(0, "a", hiddenMarker)
	h := newHarness(t, w)

	var calls atomic.Int32
	unsubscribe := h.manager.Subscribe(func(ItemCache) { calls.Add(1) })

	if err := h.manager.CacheItemsRegardless(context.Background(), nil); err != nil {
		t.Fatalf("CacheItemsRegardless: %v", err)
	}
	unsubscribe()
	if err := h.manager.CacheItemsRegardless(context.Background(), nil); err != nil {
		t.Fatalf("CacheItemsRegardless: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("observer called %d times, want 1", got)
	}
}
