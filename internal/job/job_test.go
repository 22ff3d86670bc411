package job_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"ytqueue/internal/job"
)

func TestMarshalGenerateOmitsAbsentFields(t *testing.T) {
	j := job.NewGenerate(job.GenerateParams{File: "a.mp3"}, "a.mp4")
	data, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"Generate":{"params":{"file":"a.mp3"},"dest":"a.mp4"}}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestMarshalGenerateUploadIncludesThumbnailOnlyWhenSet(t *testing.T) {
	j := job.NewGenerateUpload(job.GenerateParams{File: "a.mp3"}, "a.mp4", "")
	data, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "thumbnail") {
		t.Fatalf("expected thumbnail to be omitted, got %s", data)
	}
	if strings.Contains(string(data), "null") {
		t.Fatalf("expected no null values, got %s", data)
	}

	j.Thumbnail = "thumb.png"
	data, err = json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"GenerateUpload":{"params":{"file":"a.mp3"},"dest":"a.mp4","thumbnail":"thumb.png"}}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestUnmarshalRoundTripPreservesOptionalFields(t *testing.T) {
	input := `{"GenerateUpload":{"params":{"file":"ep1.mp3","captionOptions":{"font":"Inter","size":32},"watermarkOpacity":0,"width":1920,"height":1080,"title":"Episode 1","tags":["a","b"],"privacy":"unlisted"},"dest":"/out/ep1.mp4","thumbnail":"t.png"}}`
	var j job.Job
	if err := json.Unmarshal([]byte(input), &j); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if j.Kind != job.KindGenerateUpload {
		t.Fatalf("expected GenerateUpload, got %q", j.Kind)
	}
	if j.Params.WatermarkOpacity == nil || *j.Params.WatermarkOpacity != 0 {
		t.Fatalf("expected explicit zero opacity to survive decode")
	}
	if j.Params.FPS != nil {
		t.Fatalf("expected absent fps to stay nil")
	}
	out, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != input {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", out, input)
	}
}

func TestUnmarshalRejectsUnknownOrAmbiguousVariants(t *testing.T) {
	cases := []string{
		`{"Upload":{"params":{"file":"a"},"dest":"b"}}`,
		`{}`,
		`{"Generate":{"params":{"file":"a"},"dest":"b"},"GenerateUpload":{"params":{"file":"a"},"dest":"b"}}`,
		`null`,
		`[]`,
		`{"Generate":"nope"}`,
	}
	for _, input := range cases {
		var j job.Job
		err := json.Unmarshal([]byte(input), &j)
		if err == nil {
			t.Fatalf("expected error for %s", input)
		}
		if !errors.Is(err, job.ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %s, got %v", input, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     job.Job
		wantErr bool
	}{
		{name: "valid generate", job: job.NewGenerate(job.GenerateParams{File: "a.mp3"}, "a.mp4")},
		{name: "valid upload", job: job.NewGenerateUpload(job.GenerateParams{File: "a.mp3", Privacy: "private"}, "a.mp4", "t.png")},
		{name: "missing file", job: job.NewGenerate(job.GenerateParams{}, "a.mp4"), wantErr: true},
		{name: "missing dest", job: job.NewGenerate(job.GenerateParams{File: "a.mp3"}, " "), wantErr: true},
		{name: "bad opacity", job: job.NewGenerate(job.GenerateParams{File: "a.mp3", WatermarkOpacity: job.Float(1.5)}, "a.mp4"), wantErr: true},
		{name: "bad width", job: job.NewGenerate(job.GenerateParams{File: "a.mp3", Width: job.Int(0)}, "a.mp4"), wantErr: true},
		{name: "bad privacy", job: job.NewGenerateUpload(job.GenerateParams{File: "a.mp3", Privacy: "secret"}, "a.mp4", ""), wantErr: true},
		{name: "thumbnail without upload", job: job.Job{Kind: job.KindGenerate, Params: job.GenerateParams{File: "a"}, Dest: "b", Thumbnail: "t"}, wantErr: true},
		{name: "unknown kind", job: job.Job{Kind: "Other", Params: job.GenerateParams{File: "a"}, Dest: "b"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMergeExplicitValuesWin(t *testing.T) {
	profile := job.GenerateParams{
		Background:     "bg.png",
		Width:          job.Int(1280),
		Privacy:        "private",
		Tags:           []string{"podcast"},
		CaptionOptions: &job.CaptionOptions{Font: "Inter", Size: job.Int(24), Color: "white"},
	}
	explicit := job.GenerateParams{
		File:           "ep.mp3",
		Width:          job.Int(1920),
		Title:          "Episode",
		CaptionOptions: &job.CaptionOptions{Size: job.Int(40)},
	}
	merged := explicit.Merge(profile)

	if merged.File != "ep.mp3" || merged.Title != "Episode" {
		t.Fatalf("expected explicit strings to be kept, got %+v", merged)
	}
	if merged.Background != "bg.png" || merged.Privacy != "private" {
		t.Fatalf("expected profile values for absent fields, got %+v", merged)
	}
	if *merged.Width != 1920 {
		t.Fatalf("expected explicit width 1920, got %d", *merged.Width)
	}
	if !reflect.DeepEqual(merged.Tags, []string{"podcast"}) {
		t.Fatalf("expected profile tags, got %v", merged.Tags)
	}
	if merged.CaptionOptions.Font != "Inter" || *merged.CaptionOptions.Size != 40 || merged.CaptionOptions.Color != "white" {
		t.Fatalf("unexpected caption merge: %+v", merged.CaptionOptions)
	}
	if *profile.CaptionOptions.Size != 24 {
		t.Fatalf("merge mutated the profile")
	}
}

func TestMergeWithoutCaptionsStaysNil(t *testing.T) {
	merged := job.GenerateParams{File: "a"}.Merge(job.GenerateParams{})
	if merged.CaptionOptions != nil {
		t.Fatalf("expected nil caption options, got %+v", merged.CaptionOptions)
	}
}

func TestUploadRequestPrefersJobThumbnail(t *testing.T) {
	params := job.GenerateParams{File: "a.mp3", Title: "T", Thumbnail: "params.png", Tags: []string{"x"}}
	req := job.NewGenerateUpload(params, "a.mp4", "job.png").UploadRequest("/out/a.mp4")
	if req.Thumbnail != "job.png" {
		t.Fatalf("expected job thumbnail, got %q", req.Thumbnail)
	}
	if req.File != "/out/a.mp4" || req.Title != "T" {
		t.Fatalf("unexpected request %+v", req)
	}
	req = job.NewGenerateUpload(params, "a.mp4", "").UploadRequest("/out/a.mp4")
	if req.Thumbnail != "params.png" {
		t.Fatalf("expected params thumbnail fallback, got %q", req.Thumbnail)
	}
}
