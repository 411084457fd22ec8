package document

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/infrastructure/chunking"
	"github.com/studypath/studypath-backend/internal/infrastructure/storage/localfs"
)

type fakeAnalyzer struct {
	chunks []string
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, chunk string) (*domain.Fragment, error) {
	f.chunks = append(f.chunks, chunk)
	return &domain.Fragment{Kind: domain.FragmentText, Text: "summary of: " + chunk[:min(20, len(chunk))]}, nil
}


func (f *fakeAnalyzer) DescribeImage(context.Context, string, []byte) (*domain.Fragment, error) {
	return nil, nil
}

func (f *fakeAnalyzer) Transcribe(context.Context, string, []byte) (string, error) {
	return "", nil
}

func newTestExtractor(t *testing.T) (*Extractor, *localfs.Storage, *fakeAnalyzer) {
	t.Helper()
	store, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	analyzer := &fakeAnalyzer{}
	return New(store, analyzer, chunking.NewSplitter(5), 10, 1), store, analyzer
}

func TestExtractPlainTextChunksByWords(t *testing.T) {
	ext, store, analyzer := newTestExtractor(t)
	ctx := context.Background()

	text := "one two three four five six seven eight"
	if _, err := store.Save(ctx, "u1/a1.txt", strings.NewReader(text)); err != nil {
		t.Fatalf("save: %v", err)
	}
	asset := &domain.Asset{ID: "a1", UserID: "u1", Filename: "notes.txt", Modality: domain.ModalityDocument, StorageKey: "u1/a1.txt"}

	result, err := ext.Extract(ctx, asset)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(analyzer.chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(analyzer.chunks))
	}
	if len(result.Fragments) != 2 {
		t.Fatalf("got %d fragments, want 2", len(result.Fragments))
	}
	if result.Derived {
		t.Error("uploaded asset reported as derived")
	}
	if result.Modality != domain.ModalityDocument {
		t.Errorf("unexpected modality %s", result.Modality)
	}
}

func TestExtractXLSXFlattensSheets(t *testing.T) {
	ext, store, analyzer := newTestExtractor(t)
	ctx := context.Background()

	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "Mitochondria"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "powerhouse"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	if _, err := store.Save(ctx, "u1/a2.xlsx", &buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	asset := &domain.Asset{ID: "a2", UserID: "u1", Filename: "cells.xlsx", Modality: domain.ModalityDocument, StorageKey: "u1/a2.xlsx"}

	result, err := ext.Extract(ctx, asset)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Fragments) == 0 {
		t.Fatal("expected at least one fragment")
	}
	joined := strings.Join(analyzer.chunks, " ")
	if !strings.Contains(joined, "Mitochondria") {
		t.Errorf("analyzed text missing cell value: %q", joined)
	}
}

func TestExtractDerivedAssetKeepsDerivedFlag(t *testing.T) {
	ext, store, _ := newTestExtractor(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, "u1/d1.txt", strings.NewReader("derived words here")); err != nil {
		t.Fatalf("save: %v", err)
	}
	asset := &domain.Asset{ID: "d1", UserID: "u1", Filename: "frag.txt", ParentAssetID: "a1", StorageKey: "u1/d1.txt"}

	result, err := ext.Extract(ctx, asset)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !result.Derived {
		t.Error("derived asset not flagged as derived")
	}
}

func TestExtractEmptyDocumentFails(t *testing.T) {
	ext, store, _ := newTestExtractor(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, "u1/e1.txt", strings.NewReader("   ")); err != nil {
		t.Fatalf("save: %v", err)
	}
	asset := &domain.Asset{ID: "e1", UserID: "u1", Filename: "blank.txt", StorageKey: "u1/e1.txt"}

	if _, err := ext.Extract(ctx, asset); err == nil {
		t.Fatal("expected error for empty document")
	}
}
