package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lectern/internal/services"
)

func TestPushRejectsWhenFullWithoutBlocking(t *testing.T) {
	q := New(2)
	if err := q.Push("a"); err != nil {
		t.Fatalf("push a: %v", err)
	}
	if err := q.Push("b"); err != nil {
		t.Fatalf("push b: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Push("c") }()
	select {
	case err := <-done:
		if !errors.Is(err, services.ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("push on full queue blocked")
	}
	if q.Size() != 2 {
		t.Fatalf("size %d, want 2", q.Size())
	}
}

func TestPopServesFIFO(t *testing.T) {
	q := New(3)
	for _, item := range []string{"a", "b", "c"} {
		if err := q.Push(item); err != nil {
			t.Fatalf("push %s: %v", item, err)
		}
	}
	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if got != want {
			t.Fatalf("pop order %q, want %q", got, want)
		}
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New(1)
	got := make(chan string, 1)
	go func() {
		item, err := q.Pop(context.Background())
		if err != nil {
			t.Errorf("pop: %v", err)
			return
		}
		got <- item
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Push("late"); err != nil {
		t.Fatalf("push: %v", err)
	}
	select {
	case item := <-got:
		if item != "late" {
			t.Fatalf("pop got %q", item)
		}
	case <-time.After(time.Second):
		t.Fatal("pop never woke up")
	}
}

func TestPopHonorsContextCancellation(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pop ignored cancellation")
	}
}

func TestResizeGrowKeepsAllItems(t *testing.T) {
	q := New(2)
	_ = q.Push("a")
	_ = q.Push("b")
	rejected := q.Resize(5)
	if len(rejected) != 0 {
		t.Fatalf("grow rejected %v", rejected)
	}
	if q.Capacity() != 5 || q.Size() != 2 {
		t.Fatalf("capacity %d size %d", q.Capacity(), q.Size())
	}
	if err := q.Push("c"); err != nil {
		t.Fatalf("push after grow: %v", err)
	}
}

func TestResizeShrinkReportsOverflowInOrder(t *testing.T) {
	q := New(4)
	for _, item := range []string{"a", "b", "c", "d"} {
		_ = q.Push(item)
	}
	rejected := q.Resize(2)
	if len(rejected) != 2 || rejected[0] != "c" || rejected[1] != "d" {
		t.Fatalf("rejected %v, want [c d]", rejected)
	}
	if items := q.Items(); len(items) != 2 || items[0] != "a" || items[1] != "b" {
		t.Fatalf("survivors %v, want [a b]", items)
	}
	if err := q.Push("e"); !errors.Is(err, services.ErrQueueFull) {
		t.Fatalf("shrunk queue should be full, got %v", err)
	}
}

func TestConcurrentPushPopResize(t *testing.T) {
	q := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var popped sync.Map
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			item, err := q.Pop(ctx)
			if err != nil {
				return
			}
			popped.Store(item, true)
		}
	}()

	var producers sync.WaitGroup
	for p := 0; p < 4; p++ {
		producers.Add(1)
		go func(p int) {
			defer producers.Done()
			for i := 0; i < 50; i++ {
				_ = q.Push(fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}

	for i := 0; i < 20; i++ {
		q.Resize(2 + i%10)
	}
	producers.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for q.Size() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	if size := q.Size(); size != 0 {
		t.Fatalf("queue drained to %d items", size)
	}
	if capacity := q.Capacity(); capacity < 1 {
		t.Fatalf("capacity corrupted: %d", capacity)
	}
}
