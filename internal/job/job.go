package job

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the variant of a Job.
type Kind string

const (
	// KindGenerate produces a video without uploading it.
	KindGenerate Kind = "Generate"
	// KindGenerateUpload produces a video and uploads the result.
	KindGenerateUpload Kind = "GenerateUpload"
)

// ErrInvalid marks a job that fails validation or cannot be decoded.
var ErrInvalid = errors.New("invalid job")

// Job is a unit of queued work. It is immutable once enqueued.
type Job struct {
	Kind      Kind
	Params    GenerateParams
	Dest      string
	Thumbnail string
}

// NewGenerate builds a generate-only job.
func NewGenerate(params GenerateParams, dest string) Job {
	return Job{Kind: KindGenerate, Params: params, Dest: dest}
}

// NewGenerateUpload builds a generate-and-upload job.
func NewGenerateUpload(params GenerateParams, dest, thumbnail string) Job {
	return Job{Kind: KindGenerateUpload, Params: params, Dest: dest, Thumbnail: thumbnail}
}

// Uploads reports whether the job ends with an upload.
func (j Job) Uploads() bool {
	return j.Kind == KindGenerateUpload
}

// Validate checks the job's required fields.
func (j Job) Validate() error {
	switch j.Kind {
	case KindGenerate, KindGenerateUpload:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, j.Kind)
	}
	if strings.TrimSpace(j.Dest) == "" {
		return fmt.Errorf("%w: dest is required", ErrInvalid)
	}
	if j.Kind == KindGenerate && j.Thumbnail != "" {
		return fmt.Errorf("%w: thumbnail only applies to uploads", ErrInvalid)
	}
	return j.Params.Validate()
}

// Label returns a short human readable description used in logs and tables.
func (j Job) Label() string {
	if title := strings.TrimSpace(j.Params.Title); title != "" {
		return title
	}
	return j.Params.File
}

type generatePayload struct {
	Params GenerateParams `json:"params"`
	Dest   string         `json:"dest"`
}

type generateUploadPayload struct {
	Params    GenerateParams `json:"params"`
	Dest      string         `json:"dest"`
	Thumbnail string         `json:"thumbnail,omitempty"`
}

// MarshalJSON encodes the job in its externally tagged form.
func (j Job) MarshalJSON() ([]byte, error) {
	switch j.Kind {
	case KindGenerate:
		return json.Marshal(map[string]generatePayload{
			string(KindGenerate): {Params: j.Params, Dest: j.Dest},
		})
	case KindGenerateUpload:
		return json.Marshal(map[string]generateUploadPayload{
			string(KindGenerateUpload): {Params: j.Params, Dest: j.Dest, Thumbnail: j.Thumbnail},
		})
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalid, j.Kind)
	}
}

// UnmarshalJSON decodes an externally tagged job. Exactly one known tag is accepted.
func (j *Job) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: job is null", ErrInvalid)
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("%w: expected exactly one variant, got %d", ErrInvalid, len(tagged))
	}
	for tag, raw := range tagged {
		switch Kind(tag) {
		case KindGenerate:
			var payload generatePayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalid, tag, err)
			}
			*j = Job{Kind: KindGenerate, Params: payload.Params, Dest: payload.Dest}
		case KindGenerateUpload:
			var payload generateUploadPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalid, tag, err)
			}
			*j = Job{Kind: KindGenerateUpload, Params: payload.Params, Dest: payload.Dest, Thumbnail: payload.Thumbnail}
		default:
			return fmt.Errorf("%w: unknown variant %q", ErrInvalid, tag)
		}
	}
	return nil
}

// UploadRequest describes the upload contract input derived from a job.
type UploadRequest struct {
	File        string   `json:"file"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PublishAt   string   `json:"publishAt,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Privacy     string   `json:"privacy,omitempty"`
	PlaylistID  string   `json:"playlistId,omitempty"`
}

// UploadRequest builds the upload input for a generated video at file.
// The job-level thumbnail takes precedence over the params thumbnail.
func (j Job) UploadRequest(file string) UploadRequest {
	thumbnail := j.Thumbnail
	if thumbnail == "" {
		thumbnail = j.Params.Thumbnail
	}
	return UploadRequest{
		File:        file,
		Title:       j.Params.Title,
		Description: j.Params.Description,
		Tags:        append([]string(nil), j.Params.Tags...),
		PublishAt:   j.Params.PublishAt,
		Thumbnail:   thumbnail,
		Privacy:     j.Params.Privacy,
		PlaylistID:  j.Params.PlaylistID,
	}
}
