package atlas

import (
	"fmt"
	"testing"
)

func BenchmarkPackerInsert(b *testing.B) {
	p := NewPacker(2048, 2048, 1)
	for i := 0; i < b.N; i++ {
		if _, err := p.Insert(8+i%24, 8+(i*7)%24); err != nil {
			p.Reset()
		}
	}
}

func BenchmarkCacheHit(b *testing.B) {
	c, _ := NewCache(DefaultConfig())
	keys := make([]Key, 256)
	for i := range keys {
		keys[i] = Key(fmt.Sprint("glyph", i))
		c.GetOrInsert(keys[i], 16, 20)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.GetOrInsert(keys[i%len(keys)], 16, 20)
	}
}

func BenchmarkCacheRepack(b *testing.B) {
	c, _ := NewCache(DefaultConfig())
	for i := 0; i < 512; i++ {
		c.GetOrInsert(Key(fmt.Sprint("s", i)), 8+i%40, 8+(i*3)%40)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Repack()
	}
}
