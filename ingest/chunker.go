package ingest

// ChunkerConfig controls fixed-window chunking. Size and Overlap are both
// measured in characters of section text.
type ChunkerConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkerConfig returns the standard 1000/100 window.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{Size: 1000, Overlap: 100}
}

// normalize clamps degenerate configs back to the defaults: a non-positive
// Size or an Overlap that leaves no forward step would otherwise stall the
// window.
func (cfg ChunkerConfig) normalize() ChunkerConfig {
	def := DefaultChunkerConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		cfg.Overlap = def.Overlap
		if cfg.Overlap >= cfg.Size {
			cfg.Overlap = 0
		}
	}
	return cfg
}

// ChunkText splits text into overlapping fixed-size chunks. Sizes count
// characters, not bytes, so multi-byte text chunks the same as ASCII and
// boundaries never land mid-rune. Consecutive chunks share exactly Overlap
// trailing/leading characters; the final chunk absorbs any remainder so no
// trailing content is ever dropped. Text no longer than Size yields a
// single chunk.
func ChunkText(text string, cfg ChunkerConfig) []string {
	if text == "" {
		return nil
	}
	cfg = cfg.normalize()

	runes := []rune(text)
	if len(runes) <= cfg.Size {
		return []string{text}
	}

	step := cfg.Size - cfg.Overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + cfg.Size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
