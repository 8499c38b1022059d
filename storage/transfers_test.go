package storage

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestAppendThenGetReturnsEqualRecord(t *testing.T) {
	store := newTestStore(t)

	contact := "someone@example.com"
	transfer := testTransfer("0123456789ab", 1_706_000_000_000)
	transfer.Contact = &contact
	mustAppendTransfer(t, store, transfer)

	got, err := store.GetTransfer(transfer.Token)
	if err != nil {
		t.Fatalf("GetTransfer failed: %v", err)
	}
	if !reflect.DeepEqual(*got, transfer) {
		t.Fatalf("unexpected transfer:\n got %+v\nwant %+v", *got, transfer)
	}
}

func TestAppendWithoutContactStoresNull(t *testing.T) {
	store := newTestStore(t)

	mustAppendTransfer(t, store, testTransfer("bbbbbbbbbbbb", 5))

	got, err := store.GetTransfer("bbbbbbbbbbbb")
	if err != nil {
		t.Fatalf("GetTransfer failed: %v", err)
	}
	if got.Contact != nil {
		t.Fatalf("expected nil contact, got %q", *got.Contact)
	}
}

func TestAppendDefaultsCreatedAt(t *testing.T) {
	store := newTestStore(t)

	mustAppendTransfer(t, store, testTransfer("cccccccccccc", 0))

	got, err := store.GetTransfer("cccccccccccc")
	if err != nil {
		t.Fatalf("GetTransfer failed: %v", err)
	}
	if got.CreatedAt <= 0 {
		t.Fatalf("expected created_at to be set, got %d", got.CreatedAt)
	}
}

func TestAppendDuplicateTokenFails(t *testing.T) {
	store := newTestStore(t)

	mustAppendTransfer(t, store, testTransfer("dddddddddddd", 1))

	err := store.AppendTransfer(testTransfer("dddddddddddd", 2))
	if !errors.Is(err, ErrDuplicateToken) {
		t.Fatalf("expected ErrDuplicateToken, got %v", err)
	}

	count, err := store.CountTransfers()
	if err != nil {
		t.Fatalf("CountTransfers failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one transfer after duplicate append, got %d", count)
	}
}

func TestAppendValidatesRequiredFields(t *testing.T) {
	store := newTestStore(t)

	cases := []func(*Transfer){
		func(tr *Transfer) { tr.Token = "" },
		func(tr *Transfer) { tr.ArchiveName = "" },
		func(tr *Transfer) { tr.ArtifactPath = "" },
		func(tr *Transfer) { tr.Link = "" },
		func(tr *Transfer) { tr.FailedCount = -1 },
	}
	for i, mutate := range cases {
		transfer := testTransfer("eeeeeeeeeeee", 1)
		mutate(&transfer)
		if err := store.AppendTransfer(transfer); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestGetMissingTransferReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetTransfer("ffffffffffff"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTransfersNewestFirst(t *testing.T) {
	store := newTestStore(t)

	mustAppendTransfer(t, store, testTransfer("000000000001", 100))
	mustAppendTransfer(t, store, testTransfer("000000000002", 300))
	mustAppendTransfer(t, store, testTransfer("000000000003", 200))
	// Same timestamp as the newest: insertion order breaks the tie.
	mustAppendTransfer(t, store, testTransfer("000000000004", 300))

	listed, err := store.ListTransfers(0, 0)
	if err != nil {
		t.Fatalf("ListTransfers failed: %v", err)
	}

	want := []string{"000000000004", "000000000002", "000000000003", "000000000001"}
	if len(listed) != len(want) {
		t.Fatalf("expected %d transfers, got %d", len(want), len(listed))
	}
	for i, token := range want {
		if listed[i].Token != token {
			t.Fatalf("position %d: expected %q, got %q", i, token, listed[i].Token)
		}
	}

	page, err := store.ListTransfers(2, 1)
	if err != nil {
		t.Fatalf("ListTransfers page failed: %v", err)
	}
	if len(page) != 2 || page[0].Token != "000000000002" || page[1].Token != "000000000003" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListTransfersEmpty(t *testing.T) {
	store := newTestStore(t)

	listed, err := store.ListTransfers(10, 0)
	if err != nil {
		t.Fatalf("ListTransfers failed: %v", err)
	}
	if listed == nil || len(listed) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", listed)
	}
}

func TestConcurrentAppendsOfSameTokenSucceedOnce(t *testing.T) {
	store := newTestStore(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.AppendTransfer(testTransfer("123412341234", int64(i+1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDuplicateToken):
				dupes++
			default:
				t.Errorf("unexpected append error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || dupes != workers-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d and %d", workers-1, successes, dupes)
	}
}

func TestConcurrentAppendsOfDistinctTokens(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.AppendTransfer(testTransfer(fmt.Sprintf("%012x", i), int64(i+1))); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	count, err := store.CountTransfers()
	if err != nil {
		t.Fatalf("CountTransfers failed: %v", err)
	}
	if count != 20 {
		t.Fatalf("expected 20 transfers, got %d", count)
	}
}
