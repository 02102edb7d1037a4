package embedder

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxSeqLen caps the token sequence per text. Paper title + abstract
// usually fits; longer abstracts are truncated.
const maxSeqLen = 256

// maxWordRunes guards the WordPiece loop against pathological tokens.
const maxWordRunes = 200

// encoded holds tokenized texts packed for ONNX inference. All slices
// are flat [size * seqLen].
type encoded struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// tokenizer performs BERT-style WordPiece tokenization with lowercasing
// and accent stripping, matching the MiniLM export's preprocessing.
type tokenizer struct {
	ids   map[string]int64
	padID int64
	unkID int64
	clsID int64
	sepID int64
}

// newTokenizer loads a vocab.txt file where each line is a token and the
// 0-indexed line number is the token ID.
func newTokenizer(vocabPath string) (*tokenizer, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	defer f.Close()

	ids := make(map[string]int64, 32000)
	var count int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ids[scanner.Text()] = count
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tokenizer: read vocab: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("tokenizer: vocab is empty: %s", vocabPath)
	}

	t := &tokenizer{ids: ids}
	for _, sp := range []struct {
		token string
		dest  *int64
	}{
		{"[PAD]", &t.padID},
		{"[UNK]", &t.unkID},
		{"[CLS]", &t.clsID},
		{"[SEP]", &t.sepID},
	} {
		id, ok := ids[sp.token]
		if !ok {
			return nil, fmt.Errorf("tokenizer: vocab missing %s", sp.token)
		}
		*sp.dest = id
	}
	return t, nil
}

// encodeBatch tokenizes texts and packs them into flat slices padded to
// the longest sequence in the batch (capped at maxSeqLen).
func (t *tokenizer) encodeBatch(texts []string) encoded {
	n := len(texts)
	if n == 0 {
		return encoded{}
	}

	sequences := make([][]int64, n)
	maxLen := 0
	for i, text := range texts {
		seq := t.encode(text)
		sequences[i] = seq
		if len(seq) > maxLen {
			maxLen = len(seq)
		}
	}

	size := int64(n)
	seqLen := int64(maxLen)
	total := size * seqLen

	out := encoded{
		inputIDs:      make([]int64, total),
		attentionMask: make([]int64, total),
		tokenTypeIDs:  make([]int64, total), // single-segment: all zeros
		size:          size,
		seqLen:        seqLen,
	}

	for i, seq := range sequences {
		off := int64(i) * seqLen
		for j, id := range seq {
			out.inputIDs[off+int64(j)] = id
			out.attentionMask[off+int64(j)] = 1
		}
		// Padding positions keep id 0 ([PAD]) and mask 0.
	}
	return out
}

// encode converts one text into [CLS] token-ids [SEP], truncated to
// maxSeqLen.
func (t *tokenizer) encode(text string) []int64 {
	words := basicTokenize(text)

	ids := make([]int64, 0, maxSeqLen)
	ids = append(ids, t.clsID)
	for _, word := range words {
		for _, piece := range t.wordpiece(word) {
			if len(ids) == maxSeqLen-1 {
				break
			}
			ids = append(ids, t.lookup(piece))
		}
		if len(ids) == maxSeqLen-1 {
			break
		}
	}
	ids = append(ids, t.sepID)
	return ids
}

func (t *tokenizer) lookup(token string) int64 {
	if id, ok := t.ids[token]; ok {
		return id
	}
	return t.unkID
}

// wordpiece greedily decomposes one word into the longest matching
// subwords, continuation pieces prefixed with "##". A word with no
// decomposition collapses to [UNK].
func (t *tokenizer) wordpiece(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		matched := ""
		for end > start {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = "##" + candidate
			}
			if _, ok := t.ids[candidate]; ok {
				matched = candidate
				break
			}
			end--
		}
		if matched == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, matched)
		start = end
	}
	return pieces
}

// basicTokenize applies BERT's BasicTokenizer: clean, lowercase, strip
// accents, split on whitespace and punctuation.
func basicTokenize(text string) []string {
	var cleaned strings.Builder
	cleaned.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == 0xFFFD || isControl(r):
			// drop
		case isWhitespace(r):
			cleaned.WriteRune(' ')
		default:
			cleaned.WriteRune(r)
		}
	}

	lowered := stripAccents(strings.ToLower(cleaned.String()))

	var words []string
	for _, field := range strings.Fields(lowered) {
		words = append(words, splitPunct(field)...)
	}
	return words
}

// stripAccents removes combining marks after NFD normalization.
func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitPunct splits a word at punctuation, keeping each punctuation rune
// as its own token.
func splitPunct(word string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range word {
		if isPunct(r) {
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			tokens = append(tokens, string(r))
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// Character classes matching BERT's reference tokenizer.

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
