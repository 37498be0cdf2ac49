package snowflake

import (
	"sync"
	"testing"
)

func TestGenerate_Unique(t *testing.T) {
	node, err := NewNode(1)
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}

	seen := make(map[ID]bool)
	for i := 0; i < 10000; i++ {
		id := node.Generate()
		if seen[id] {
			t.Fatalf("Duplicate ID generated: %d", id)
		}
		seen[id] = true
	}
}

func TestGenerate_Monotonic(t *testing.T) {
	node, _ := NewNode(1)

	var prev ID
	for i := 0; i < 1000; i++ {
		id := node.Generate()
		if id <= prev {
			t.Fatalf("Expected increasing IDs, got %d after %d", id, prev)
		}
		prev = id
	}
}

func TestGenerate_Concurrent(t *testing.T) {
	node, _ := NewNode(1)

	const goroutines = 10
	const perGoroutine = 1000

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[ID]bool)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id := node.Generate()
				mu.Lock()
				if seen[id] {
					t.Errorf("Duplicate ID: %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perGoroutine {
		t.Errorf("Expected %d IDs, got %d", goroutines*perGoroutine, len(seen))
	}
}

func TestNewNode_InvalidID(t *testing.T) {
	// 越界的节点 ID 回落到默认值而不是报错
	node, err := NewNode(-5)
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}
	if node.Generate() == 0 {
		t.Error("Expected non-zero ID")
	}
}

func TestID_String(t *testing.T) {
	id := ID(123456789)
	if id.String() != "123456789" {
		t.Errorf("Expected '123456789', got '%s'", id.String())
	}
	if id.Int64() != 123456789 {
		t.Errorf("Expected 123456789, got %d", id.Int64())
	}
}
