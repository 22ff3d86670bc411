package batch_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytqueue/internal/batch"
	"ytqueue/internal/job"
	"ytqueue/internal/queue"
)

func TestParseCSVQuotedTagsAndHeaderCase(t *testing.T) {
	input := "File,Title,Description,TAGS,publish_at\n" +
		"a.mp3,Title A,\"Desc, with comma\",\"t1, t2\",2024-01-01T00:00:00Z\n" +
		",ignored,,,\n" +
		"b.mp3,,,,\n"
	rows, err := batch.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	first := rows[0]
	if first.File != "a.mp3" || first.Title != "Title A" || first.Description != "Desc, with comma" {
		t.Fatalf("unexpected first row %+v", first)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "t1" || first.Tags[1] != "t2" {
		t.Fatalf("unexpected tags %v", first.Tags)
	}
	if first.PublishAt != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected publish_at %q", first.PublishAt)
	}
	if rows[1].File != "b.mp3" || rows[1].Tags != nil {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
}

func TestParseCSVErrors(t *testing.T) {
	cases := map[string]string{
		"no file column": "title,description\nA,B\n",
		"bare quote":     "file,title\na.mp3,\"unterminated\n",
	}
	for name, input := range cases {
		if _, err := batch.ParseCSV(strings.NewReader(input)); !errors.Is(err, queue.ErrParse) {
			t.Fatalf("%s: expected ErrParse, got %v", name, err)
		}
	}

	rows, err := batch.ParseCSV(strings.NewReader(""))
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected no rows for empty input, got %v err=%v", rows, err)
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, err := batch.LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, queue.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestBuildUsesRowsAndOverridesPerFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "meta.csv")
	content := "file,title,tags\nep1.mp3,Episode One,\"news,daily\"\nep2.wav,,\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rows, err := batch.LoadCSV(csvPath)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	base := job.GenerateParams{Title: "Default", Tags: []string{"show"}, Privacy: "unlisted"}
	outDir := filepath.Join(dir, "out")
	jobs, err := batch.Build(nil, rows, base, batch.Options{OutputDir: outDir})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	first, second := jobs[0], jobs[1]
	if first.Kind != job.KindGenerateUpload {
		t.Fatalf("expected upload jobs by default, got %s", first.Kind)
	}
	if first.Params.Title != "Episode One" || strings.Join(first.Params.Tags, ",") != "news,daily" {
		t.Fatalf("row metadata not applied: %+v", first.Params)
	}
	if second.Params.Title != "Default" || strings.Join(second.Params.Tags, ",") != "show" {
		t.Fatalf("expected base params for second file: %+v", second.Params)
	}
	if second.Params.Privacy != "unlisted" {
		t.Fatalf("expected shared privacy, got %q", second.Params.Privacy)
	}
	if first.Dest != filepath.Join(outDir, "ep1.mp4") || second.Dest != filepath.Join(outDir, "ep2.mp4") {
		t.Fatalf("unexpected dests %q %q", first.Dest, second.Dest)
	}
	if !filepath.IsAbs(first.Params.File) {
		t.Fatalf("expected absolute source path, got %q", first.Params.File)
	}
}

func TestBuildExplicitFilesAndNoUpload(t *testing.T) {
	t.Chdir(t.TempDir())
	jobs, err := batch.Build([]string{"talk.m4a"}, nil, job.GenerateParams{}, batch.Options{NoUpload: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	cwd, _ := os.Getwd()
	if jobs[0].Kind != job.KindGenerate || jobs[0].Dest != filepath.Join(cwd, "talk.mp4") {
		t.Fatalf("unexpected job %+v", jobs[0])
	}

	if _, err := batch.Build(nil, nil, job.GenerateParams{}, batch.Options{}); err == nil {
		t.Fatal("expected error for empty input")
	}
	bad := job.GenerateParams{Privacy: "secret"}
	if _, err := batch.Build([]string{"a.mp3"}, nil, bad, batch.Options{}); !errors.Is(err, job.ErrInvalid) {
		t.Fatalf("expected invalid job error, got %v", err)
	}
}

func TestDestFor(t *testing.T) {
	cases := []struct {
		file, dir, want string
	}{
		{"/music/show.mp3", "", "show.mp4"},
		{"/music/show.final.wav", "/out", "/out/show.final.mp4"},
		{"noext", "/out", "/out/noext.mp4"},
	}
	for _, tc := range cases {
		if got := batch.DestFor(tc.file, tc.dir); got != tc.want {
			t.Fatalf("DestFor(%q, %q) = %q, want %q", tc.file, tc.dir, got, tc.want)
		}
	}
}
