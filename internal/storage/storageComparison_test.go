package storage

import (
	"fmt"
	"testing"
	"time"
)

func getAllImplementations() map[string]Storage {
	sharded1, _ := NewShardedMapStorage(1)
	sharded16, _ := NewShardedMapStorage(16)
	sharded64, _ := NewShardedMapStorage(64)

	return map[string]Storage{
		"MapStorage":           NewMapStorage(),
		"ShardedMapStorage_1":  sharded1,
		"ShardedMapStorage_16": sharded16,
		"ShardedMapStorage_64": sharded64,
	}
}

func BenchmarkStorage(b *testing.B) {
	implementations := getAllImplementations()

	for name, s := range implementations {
		b.Run(fmt.Sprintf("%s/ReadOnly", name), func(b *testing.B) {
			s.Set("bench_key", "value", SetOptions{})
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					s.Get("bench_key")
				}
			})
		})

		b.Run(fmt.Sprintf("%s/Mixed90-10", name), func(b *testing.B) {
			keyCount := 1000
			for i := 0; i < keyCount; i++ {
				s.Set(fmt.Sprintf("key%d", i), "val", SetOptions{})
			}
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					key := fmt.Sprintf("key%d", i%keyCount)
					if i%10 == 0 {
						s.Set(key, "new_val", SetOptions{})
					} else {
						s.Get(key)
					}
					i++
				}
			})
		})

		b.Run(fmt.Sprintf("%s/WriteHeavyTTL", name), func(b *testing.B) {
			keyCount := 1000
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					key := fmt.Sprintf("key%d", i%keyCount)
					if i%2 == 0 {
						s.Set(key, "val", SetOptions{TTL: time.Minute})
					} else {
						s.Get(key)
					}
					i++
				}
			})
		})
	}
}
