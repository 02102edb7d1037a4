package embedder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeVocab creates a vocab.txt with the special tokens followed by the
// given entries. IDs: [PAD]=0 [UNK]=1 [CLS]=2 [SEP]=3, entries from 4.
func writeVocab(t *testing.T, entries ...string) string {
	t.Helper()
	lines := append([]string{"[PAD]", "[UNK]", "[CLS]", "[SEP]"}, entries...)
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewTokenizerMissingSpecials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte("hello\nworld\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := newTokenizer(path); err == nil {
		t.Fatal("expected error for vocab without special tokens")
	}
}

func TestEncodeWrapsWithClsSep(t *testing.T) {
	tok, err := newTokenizer(writeVocab(t, "sparse", "attention"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := tok.encode("Sparse attention")
	// [CLS] sparse attention [SEP]
	want := []int64{2, 4, 5, 3}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestEncodeUnknownWord(t *testing.T) {
	tok, err := newTokenizer(writeVocab(t, "sparse"))
	if err != nil {
		t.Fatal(err)
	}
	ids := tok.encode("zzz")
	// [CLS] [UNK] [SEP]
	if len(ids) != 3 || ids[1] != 1 {
		t.Fatalf("ids = %v", ids)
	}
}

func TestWordpieceSubwords(t *testing.T) {
	tok, err := newTokenizer(writeVocab(t, "trans", "##former", "##s"))
	if err != nil {
		t.Fatal(err)
	}
	pieces := tok.wordpiece("transformers")
	want := []string{"trans", "##former", "##s"}
	if len(pieces) != len(want) {
		t.Fatalf("pieces = %v, want %v", pieces, want)
	}
	for i := range want {
		if pieces[i] != want[i] {
			t.Fatalf("pieces = %v, want %v", pieces, want)
		}
	}
}

func TestBasicTokenizeLowersAndSplitsPunct(t *testing.T) {
	words := basicTokenize("Héllo, World!")
	want := []string{"hello", ",", "world", "!"}
	if len(words) != len(want) {
		t.Fatalf("words = %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("words = %v, want %v", words, want)
		}
	}
}

func TestEncodeTruncatesLongText(t *testing.T) {
	tok, err := newTokenizer(writeVocab(t, "word"))
	if err != nil {
		t.Fatal(err)
	}
	long := strings.Repeat("word ", maxSeqLen*2)
	ids := tok.encode(long)
	if len(ids) != maxSeqLen {
		t.Fatalf("len(ids) = %d, want %d", len(ids), maxSeqLen)
	}
	if ids[0] != 2 || ids[maxSeqLen-1] != 3 {
		t.Fatalf("missing [CLS]/[SEP] after truncation: %v %v", ids[0], ids[maxSeqLen-1])
	}
}

func TestEncodeBatchPadsToLongest(t *testing.T) {
	tok, err := newTokenizer(writeVocab(t, "a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	batch := tok.encodeBatch([]string{"a", "a b c"})
	if batch.size != 2 {
		t.Fatalf("size = %d", batch.size)
	}
	// Longest: [CLS] a b c [SEP] = 5.
	if batch.seqLen != 5 {
		t.Fatalf("seqLen = %d, want 5", batch.seqLen)
	}
	// First sequence: 3 real tokens, 2 padding.
	var real int
	for _, m := range batch.attentionMask[:5] {
		if m == 1 {
			real++
		}
	}
	if real != 3 {
		t.Fatalf("first sequence real tokens = %d, want 3", real)
	}
	// Padding positions must be [PAD]=0.
	if batch.inputIDs[3] != 0 || batch.inputIDs[4] != 0 {
		t.Fatalf("padding ids = %v", batch.inputIDs[:5])
	}
}
