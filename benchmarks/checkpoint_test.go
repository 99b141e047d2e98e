package benchmarks

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/graphchat/internal/lessons"
	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/randalmurphal/graphchat/pkg/prebuilt"
	"github.com/randalmurphal/graphchat/pkg/stategraph"
	"github.com/randalmurphal/graphchat/pkg/stategraph/checkpoint"
)

// BenchmarkMemoryStore_Save measures in-memory checkpoint save.
func BenchmarkMemoryStore_Save(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	data := conversationJSON(b, 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save("thread-1", "chatbot", data)
	}
}

// BenchmarkMemoryStore_Load measures in-memory checkpoint load.
func BenchmarkMemoryStore_Load(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	_ = store.Save("thread-1", "chatbot", conversationJSON(b, 50))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Load("thread-1", "chatbot")
	}
}

// BenchmarkSQLiteStore_Save measures SQLite checkpoint save.
func BenchmarkSQLiteStore_Save(b *testing.B) {
	store := createSQLiteStore(b)
	data := conversationJSON(b, 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save("thread-1", nodeID(i%100), data)
	}
}

// BenchmarkSQLiteStore_Latest measures loading a thread's current state.
func BenchmarkSQLiteStore_Latest(b *testing.B) {
	store := createSQLiteStore(b)
	data := conversationJSON(b, 50)
	for i := 0; i < 10; i++ {
		_ = store.Save("thread-1", nodeID(i), data)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = checkpoint.Latest(store, "thread-1")
	}
}

// BenchmarkRun_Memory runs a chat turn that loads and saves the thread.
func BenchmarkRun_Memory(b *testing.B) {
	stores := map[string]func(b *testing.B) checkpoint.Store{
		"memory": func(*testing.B) checkpoint.Store { return checkpoint.NewMemoryStore() },
		"sqlite": func(b *testing.B) checkpoint.Store { return createSQLiteStore(b) },
	}
	for name, open := range stores {
		b.Run(name, func(b *testing.B) {
			compiled := must(lessons.BuildMemory(mockModel(llm.NewMockClient("Noted.")), open(b)))
			ctx := stategraph.NewContext(context.Background())
			input := userTurn("remember this")

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				// a fresh thread per iteration keeps the state size fixed
				_, _ = compiled.Run(ctx, input, stategraph.WithThreadID(nodeID(i)))
			}
		})
	}
}

// BenchmarkJSONMarshal measures conversation serialization overhead.
func BenchmarkJSONMarshal(b *testing.B) {
	state := conversation(50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(state)
	}
}

// BenchmarkJSONUnmarshal measures conversation deserialization overhead.
func BenchmarkJSONUnmarshal(b *testing.B) {
	data := conversationJSON(b, 50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var s prebuilt.MessagesState
		_ = json.Unmarshal(data, &s)
	}
}

// Helper functions

func conversationJSON(b *testing.B, n int) []byte {
	b.Helper()
	data, err := json.Marshal(conversation(n))
	if err != nil {
		b.Fatal(err)
	}
	return data
}

func createSQLiteStore(b *testing.B) *checkpoint.SQLiteStore {
	b.Helper()
	store, err := checkpoint.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = store.Close() })
	return store
}
