package semantic

import (
	"context"
	"testing"

	"github.com/clearsignal/smsguard/pkg/textproc"
)

func embed(text string) []float64 {
	return textproc.PseudoEmbedding(textproc.Tokenize(textproc.Normalize(text)))
}

func TestRememberAndSimilar(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	ctx := context.Background()

	spam := "WIN FREE CASH NOW!!! http://bit.ly/x"
	ham := "running ten minutes late, order without me"

	if err := ix.Remember(ctx, "fp-spam", embed(spam), "flag"); err != nil {
		t.Fatalf("remember spam: %v", err)
	}
	if err := ix.Remember(ctx, "fp-ham", embed(ham), "allow"); err != nil {
		t.Fatalf("remember ham: %v", err)
	}
	if ix.Count() != 2 {
		t.Fatalf("expected 2 remembered messages, got %d", ix.Count())
	}

	// The exact same message must come back as its own nearest neighbor.
	matches, err := ix.Similar(ctx, embed(spam), 1)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(matches) != 1 || matches[0].Fingerprint != "fp-spam" {
		t.Fatalf("expected fp-spam as nearest neighbor, got %+v", matches)
	}
	if matches[0].Verdict != "flag" {
		t.Fatalf("expected stored verdict, got %q", matches[0].Verdict)
	}
	if matches[0].Similarity < 0.999 {
		t.Fatalf("identical vectors should be ~1.0 similar, got %v", matches[0].Similarity)
	}
}

func TestSimilarClampsToIndexSize(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	ctx := context.Background()

	// Empty index: no matches, no error.
	matches, err := ix.Similar(ctx, embed("anything"), 5)
	if err != nil || len(matches) != 0 {
		t.Fatalf("expected no matches from empty index, got %v / %v", matches, err)
	}

	if err := ix.Remember(ctx, "only", embed("one single entry"), "allow"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	matches, err = ix.Similar(ctx, embed("one single entry"), 10)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected request clamped to index size, got %d matches", len(matches))
	}
}

func TestRememberSkipsEmptyMessages(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	if err := ix.Remember(context.Background(), "fp-empty", embed(""), "allow"); err != nil {
		t.Fatalf("empty message should be skipped silently, got %v", err)
	}
	if ix.Count() != 0 {
		t.Fatalf("zero vector must not be indexed")
	}

	if err := ix.Remember(context.Background(), "", embed("text"), "allow"); err == nil {
		t.Fatalf("expected error for empty fingerprint")
	}
}
