package document

import "strings"

// Chunk is a piece of document text ready for embedding.
type Chunk struct {
	Index int
	Page  int
	Text  string
}

// defaultSeparators are tried in order: paragraph break, line break, word
// break, and finally a hard character cut.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter breaks text into overlapping chunks, preferring to split on
// paragraph and line boundaries before falling back to word and character
// boundaries. Sizes are measured in runes.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter creates a Splitter. If size <= 0 it defaults to 1000; overlap
// is clamped below size.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{ChunkSize: size, ChunkOverlap: overlap}
}

// Split breaks a single text into chunks.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, defaultSeparators)
}

// SplitPages splits each page independently so every chunk keeps its page
// attribution, and assigns global chunk indexes.
func (s *Splitter) SplitPages(pages []Page) []Chunk {
	var chunks []Chunk
	for _, p := range pages {
		for _, text := range s.Split(p.Text) {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Page:  p.Number,
				Text:  text,
			})
		}
	}
	return chunks
}

func (s *Splitter) split(text string, separators []string) []string {
	// Pick the first separator that occurs in the text; "" always matches.
	sep := separators[len(separators)-1]
	var rest []string
	for i, cand := range separators {
		if cand == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = separators[i+1:]
			break
		}
	}

	var splits []string
	if sep == "" {
		return hardSplit(text, s.ChunkSize, s.ChunkOverlap)
	}
	splits = strings.Split(text, sep)

	var final, good []string
	for _, piece := range splits {
		if piece == "" {
			continue
		}
		if runeLen(piece) <= s.ChunkSize {
			good = append(good, piece)
			continue
		}
		// Oversized piece: flush accumulated splits, then recurse with the
		// finer separators.
		if len(good) > 0 {
			final = append(final, s.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, hardSplit(piece, s.ChunkSize, s.ChunkOverlap)...)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, sep)...)
	}
	return final
}

// merge joins small splits back together into chunks no larger than
// ChunkSize, carrying ChunkOverlap runes of trailing context into the next
// chunk via a sliding window.
func (s *Splitter) merge(splits []string, sep string) []string {
	sepLen := runeLen(sep)

	var chunks []string
	var window []string
	total := 0 // runes in window, separators included

	flush := func() {
		chunk := strings.TrimSpace(strings.Join(window, sep))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range splits {
		pieceLen := runeLen(piece)
		add := pieceLen
		if len(window) > 0 {
			add += sepLen
		}
		if total+add > s.ChunkSize && len(window) > 0 {
			flush()
			// Slide: drop from the front until the retained tail fits the
			// overlap budget.
			for total > s.ChunkOverlap && len(window) > 0 {
				removed := runeLen(window[0])
				if len(window) > 1 {
					removed += sepLen
				}
				total -= removed
				window = window[1:]
			}
		}
		if len(window) > 0 {
			total += sepLen
		}
		window = append(window, piece)
		total += pieceLen
	}
	if len(window) > 0 {
		flush()
	}
	return chunks
}

// hardSplit cuts text into fixed-size rune windows with overlap. Last-resort
// path for text with no usable separator.
func hardSplit(text string, size, overlap int) []string {
	runes := []rune(text)
	step := size - overlap
	if step <= 0 {
		step = size
	}
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
