package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"ytqueue/internal/fileutil"
	"ytqueue/internal/job"
)

// Options control how jobs are built.
type Options struct {
	// OutputDir receives the generated videos. Empty means the current
	// directory.
	OutputDir string
	// NoUpload builds Generate jobs instead of GenerateUpload.
	NoUpload bool
	// Thumbnail is the job-level thumbnail for uploads.
	Thumbnail string
}

// DestFor returns <outputDir>/<basename without extension>.mp4.
func DestFor(file, outputDir string) string {
	base := filepath.Base(file)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if outputDir == "" {
		return stem + ".mp4"
	}
	return filepath.Join(outputDir, stem+".mp4")
}

// NewJob builds one job for file from params. dest is used as given when
// set and derived with DestFor otherwise. Paths are made absolute.
func NewJob(file, dest string, params job.GenerateParams, opts Options) (job.Job, error) {
	absFile, err := fileutil.AbsPath(file)
	if err != nil {
		return job.Job{}, err
	}
	if strings.TrimSpace(dest) == "" {
		dest = DestFor(absFile, opts.OutputDir)
	}
	absDest, err := fileutil.AbsPath(dest)
	if err != nil {
		return job.Job{}, err
	}
	params.File = absFile

	var j job.Job
	if opts.NoUpload {
		j = job.NewGenerate(params, absDest)
	} else {
		thumbnail := opts.Thumbnail
		if thumbnail != "" {
			if thumbnail, err = fileutil.AbsPath(thumbnail); err != nil {
				return job.Job{}, err
			}
		}
		j = job.NewGenerateUpload(params, absDest, thumbnail)
	}
	if err := j.Validate(); err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", file, err)
	}
	return j, nil
}

// Build creates one job per file. When files is empty the CSV rows supply
// the file list. Row metadata overrides params for its file.
func Build(files []string, rows []Row, params job.GenerateParams, opts Options) ([]job.Job, error) {
	meta := make(map[string]Row, len(rows))
	for _, row := range rows {
		meta[row.File] = row
	}
	if len(files) == 0 {
		for _, row := range rows {
			files = append(files, row.File)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no input files")
	}

	jobs := make([]job.Job, 0, len(files))
	for _, file := range files {
		perFile := applyRow(params, meta[file])
		j, err := NewJob(file, "", perFile, opts)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func applyRow(params job.GenerateParams, row Row) job.GenerateParams {
	overlay := job.GenerateParams{
		Title:       row.Title,
		Description: row.Description,
		Tags:        row.Tags,
		PublishAt:   row.PublishAt,
	}
	return overlay.Merge(params)
}
