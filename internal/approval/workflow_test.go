package approval

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/pagegate/internal/model"
)

func pendingRecord(target string) model.ActionRecord {
	return model.ActionRecord{
		ID:          "r-" + target,
		Kind:        "click",
		Target:      target,
		RiskScore:   9.5,
		Explanation: "page threats present during sensitive action.",
	}
}

func TestSubmitAndApprove(t *testing.T) {
	w := NewWorkflow("s1")
	h, err := w.Submit(pendingRecord("#payment-submit"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.HasPrefix(h, "p-") {
		t.Errorf("unexpected handle format %q", h)
	}

	rec, ok := w.Pending()
	if !ok || rec.Handle != h || rec.Status != model.StatusPending {
		t.Fatalf("expected pending record with handle %s, got %+v", h, rec)
	}

	final, err := w.Resolve(h, model.Approve)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if final.Status != model.StatusSuccess || final.ResolvedAt == nil {
		t.Errorf("expected SUCCESS with resolved_at, got %+v", final)
	}
	if _, ok := w.Pending(); ok {
		t.Error("slot not cleared after resolve")
	}
}

func TestDenyBlocks(t *testing.T) {
	w := NewWorkflow("s1")
	h, _ := w.Submit(pendingRecord("#btn-delete-account"))
	final, err := w.Resolve(h, model.Deny)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != model.StatusBlocked {
		t.Errorf("expected BLOCKED, got %s", final.Status)
	}
}

func TestSecondSubmitIsBusy(t *testing.T) {
	w := NewWorkflow("s1")
	h, _ := w.Submit(pendingRecord("#a"))

	_, err := w.Submit(pendingRecord("#b"))
	var busy *model.BusyError
	if !errors.As(err, &busy) {
		t.Fatalf("expected BusyError, got %v", err)
	}
	if busy.PendingHandle != h || busy.Session != "s1" {
		t.Errorf("unexpected busy details %+v", busy)
	}

	rec, _ := w.Pending()
	if rec.Target != "#a" {
		t.Error("pending slot was overwritten")
	}
}

func TestResolveTwiceFails(t *testing.T) {
	w := NewWorkflow("s1")
	h, _ := w.Submit(pendingRecord("#a"))
	if _, err := w.Resolve(h, model.Approve); err != nil {
		t.Fatal(err)
	}

	_, err := w.Resolve(h, model.Deny)
	var ise *model.InvalidStateError
	if !errors.As(err, &ise) || ise.Reason != "already resolved" {
		t.Fatalf("expected already-resolved InvalidStateError, got %v", err)
	}
}

func TestResolveUnknownHandle(t *testing.T) {
	w := NewWorkflow("s1")
	_, err := w.Resolve("p-nope", model.Approve)
	if !errors.Is(err, model.ErrInvalidPendingHandle) {
		t.Fatalf("expected ErrInvalidPendingHandle, got %v", err)
	}

	h, _ := w.Submit(pendingRecord("#a"))
	if _, err := w.Resolve("p-other", model.Approve); !errors.Is(err, model.ErrInvalidPendingHandle) {
		t.Fatalf("expected mismatch to fail, got %v", err)
	}
	if _, ok := w.Pending(); !ok {
		t.Error("wrong handle must not clear the slot")
	}
	if _, err := w.Resolve(h, model.Verdict("MAYBE")); err == nil {
		t.Error("expected unknown verdict to fail")
	}
}

func TestOnResolveCalledOnce(t *testing.T) {
	var mu sync.Mutex
	var got []model.ActionRecord
	w := NewWorkflow("s1", WithOnResolve(func(r model.ActionRecord) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}))

	h, _ := w.Submit(pendingRecord("#a"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = w.Resolve(h, model.Approve)
		}()
	}
	wg.Wait()

	if len(got) != 1 {
		t.Fatalf("expected exactly one finalized record, got %d", len(got))
	}
}

func TestDoneDeliversFinalRecord(t *testing.T) {
	w := NewWorkflow("s1")
	h, _ := w.Submit(pendingRecord("#a"))
	ch, err := w.Done(h)
	if err != nil {
		t.Fatal(err)
	}

	go func() { _, _ = w.Resolve(h, model.Deny) }()

	select {
	case rec := <-ch:
		if rec.Status != model.StatusBlocked {
			t.Errorf("expected BLOCKED, got %s", rec.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resolution")
	}

	if _, err := w.Done(h); err == nil {
		t.Error("expected Done on resolved handle to fail")
	}
}

func TestTimeoutAutoDenies(t *testing.T) {
	finalized := make(chan model.ActionRecord, 1)
	w := NewWorkflow("s1",
		WithTimeout(20*time.Millisecond),
		WithOnResolve(func(r model.ActionRecord) { finalized <- r }),
	)
	h, _ := w.Submit(pendingRecord("#a"))

	select {
	case rec := <-finalized:
		if rec.Status != model.StatusBlocked {
			t.Errorf("expected auto-deny, got %s", rec.Status)
		}
		if !strings.HasSuffix(rec.Explanation, TimeoutSuffix) {
			t.Errorf("expected timeout suffix, got %q", rec.Explanation)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending decision never expired")
	}

	if _, err := w.Resolve(h, model.Approve); !errors.Is(err, model.ErrInvalidPendingHandle) {
		t.Errorf("expected expired handle to be invalid, got %v", err)
	}
}

func TestResolveStopsTimer(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	w := NewWorkflow("s1",
		WithTimeout(30*time.Millisecond),
		WithOnResolve(func(model.ActionRecord) { mu.Lock(); calls++; mu.Unlock() }),
	)
	h, _ := w.Submit(pendingRecord("#a"))
	if _, err := w.Resolve(h, model.Approve); err != nil {
		t.Fatal(err)
	}
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 finalization, got %d", calls)
	}
}

func TestNewHandleUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		h := NewHandle()
		if seen[h] {
			t.Fatalf("duplicate handle %s", h)
		}
		seen[h] = true
	}
}

func TestSlotHeldUntilOnResolveReturns(t *testing.T) {
	var w *Workflow
	var busyErr, resolveErr error
	w = NewWorkflow("s1", WithOnResolve(func(rec model.ActionRecord) {
		_, busyErr = w.Submit(pendingRecord("#next"))
		_, resolveErr = w.Resolve(rec.Handle, model.Deny)
	}))

	h, _ := w.Submit(pendingRecord("#btn-delete-account"))
	if _, err := w.Resolve(h, model.Approve); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !errors.Is(busyErr, model.ErrBusy) {
		t.Errorf("expected slot to stay busy while the final record is delivered, got %v", busyErr)
	}
	if !errors.Is(resolveErr, model.ErrInvalidPendingHandle) {
		t.Errorf("expected a second verdict to be rejected, got %v", resolveErr)
	}
	if _, err := w.Submit(pendingRecord("#next")); err != nil {
		t.Errorf("expected free slot after Resolve returned, got %v", err)
	}
}
