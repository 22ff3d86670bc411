package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytqueue/internal/batch"
	"ytqueue/internal/config"
	"ytqueue/internal/fileutil"
	"ytqueue/internal/job"
)

// generateFlags holds the options shared by queue-add and queue-add-batch.
// Only flags the user set are layered over the selected profile.
type generateFlags struct {
	output   string
	profile  string
	noUpload bool

	captions          string
	font              string
	fontPath          string
	style             string
	size              int
	captionColor      string
	captionBackground string
	position          string
	background        string
	watermark         string
	watermarkPosition string
	watermarkOpacity  float64
	watermarkScale    float64
	intro             string
	outro             string
	width             int
	height            int
	fps               int

	title       string
	description string
	tags        string
	publishAt   string
	thumbnail   string
	privacy     string
	playlistID  string
}

func (f *generateFlags) register(cmd *cobra.Command, outputUsage string) {
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", outputUsage)
	flags.StringVarP(&f.profile, "profile", "p", "", "Named profile from the configuration file")
	flags.BoolVar(&f.noUpload, "no-upload", false, "Generate the video without uploading it")

	flags.StringVar(&f.captions, "captions", "", "Caption file (SRT/VTT)")
	flags.StringVar(&f.font, "font", "", "Caption font family")
	flags.StringVar(&f.fontPath, "font-path", "", "Caption font file")
	flags.StringVar(&f.style, "style", "", "Caption style preset")
	flags.IntVar(&f.size, "size", 0, "Caption font size")
	flags.StringVar(&f.captionColor, "caption-color", "", "Caption text color")
	flags.StringVar(&f.captionColor, "color", "", "Alias for --caption-color")
	flags.StringVar(&f.captionBackground, "caption-bg", "", "Caption background color")
	flags.StringVar(&f.captionBackground, "bg-color", "", "Alias for --caption-bg")
	flags.StringVar(&f.position, "position", "", "Caption position")
	flags.StringVarP(&f.background, "background", "b", "", "Background image or video")
	flags.StringVar(&f.watermark, "watermark", "", "Watermark image")
	flags.StringVar(&f.watermarkPosition, "watermark-position", "", "Watermark position")
	flags.Float64Var(&f.watermarkOpacity, "watermark-opacity", 0, "Watermark opacity between 0 and 1")
	flags.Float64Var(&f.watermarkScale, "watermark-scale", 0, "Watermark scale factor")
	flags.StringVar(&f.intro, "intro", "", "Intro clip prepended to the video")
	flags.StringVar(&f.outro, "outro", "", "Outro clip appended to the video")
	flags.IntVar(&f.width, "width", 0, "Video width in pixels")
	flags.IntVar(&f.height, "height", 0, "Video height in pixels")
	flags.IntVar(&f.fps, "fps", 0, "Frames per second")

	flags.StringVar(&f.title, "title", "", "YouTube title")
	flags.StringVar(&f.description, "description", "", "YouTube description")
	flags.StringVar(&f.tags, "tags", "", "Comma separated YouTube tags")
	flags.StringVar(&f.publishAt, "publish-at", "", "Scheduled publish time (RFC3339)")
	flags.StringVar(&f.thumbnail, "thumbnail", "", "Custom thumbnail image")
	flags.StringVar(&f.privacy, "privacy", "", "public, unlisted or private")
	flags.StringVar(&f.playlistID, "playlist-id", "", "Playlist to add the upload to")

	_ = flags.MarkHidden("color")
	_ = flags.MarkHidden("bg-color")
}

// params resolves the profile and overlays the explicitly set flags.
func (f *generateFlags) params(cmd *cobra.Command, cfg *config.Config) (job.GenerateParams, error) {
	var base job.GenerateParams
	if name := strings.TrimSpace(f.profile); name != "" {
		profile, err := cfg.Profile(name)
		if err != nil {
			return job.GenerateParams{}, err
		}
		base = profile
	}

	changed := func(names ...string) bool {
		for _, name := range names {
			if cmd.Flags().Changed(name) {
				return true
			}
		}
		return false
	}

	var overlay job.GenerateParams
	var captions job.CaptionOptions
	paths := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"captions", f.captions, &overlay.Captions},
		{"font-path", f.fontPath, &captions.FontPath},
		{"background", f.background, &overlay.Background},
		{"watermark", f.watermark, &overlay.Watermark},
		{"intro", f.intro, &overlay.Intro},
		{"outro", f.outro, &overlay.Outro},
	}
	for _, p := range paths {
		if !changed(p.flag) {
			continue
		}
		abs, err := fileutil.AbsPath(p.value)
		if err != nil {
			return job.GenerateParams{}, fmt.Errorf("--%s: %w", p.flag, err)
		}
		*p.dst = abs
	}

	strs := []struct {
		names []string
		value string
		dst   *string
	}{
		{[]string{"font"}, f.font, &captions.Font},
		{[]string{"style"}, f.style, &captions.Style},
		{[]string{"caption-color", "color"}, f.captionColor, &captions.Color},
		{[]string{"caption-bg", "bg-color"}, f.captionBackground, &captions.Background},
		{[]string{"position"}, f.position, &captions.Position},
		{[]string{"watermark-position"}, f.watermarkPosition, &overlay.WatermarkPosition},
		{[]string{"title"}, f.title, &overlay.Title},
		{[]string{"description"}, f.description, &overlay.Description},
		{[]string{"publish-at"}, f.publishAt, &overlay.PublishAt},
		{[]string{"privacy"}, f.privacy, &overlay.Privacy},
		{[]string{"playlist-id"}, f.playlistID, &overlay.PlaylistID},
	}
	for _, s := range strs {
		if changed(s.names...) {
			*s.dst = s.value
		}
	}

	if changed("size") {
		captions.Size = job.Int(f.size)
	}
	if changed("width") {
		overlay.Width = job.Int(f.width)
	}
	if changed("height") {
		overlay.Height = job.Int(f.height)
	}
	if changed("fps") {
		overlay.FPS = job.Int(f.fps)
	}
	if changed("watermark-opacity") {
		overlay.WatermarkOpacity = job.Float(f.watermarkOpacity)
	}
	if changed("watermark-scale") {
		overlay.WatermarkScale = job.Float(f.watermarkScale)
	}
	if changed("tags") {
		overlay.Tags = batch.SplitTags(f.tags)
	}
	if !captions.IsZero() {
		overlay.CaptionOptions = &captions
	}
	return overlay.Merge(base), nil
}

// batchOptions builds the job options shared by both add commands.
func (f *generateFlags) batchOptions(cmd *cobra.Command, outputDir string) (batch.Options, error) {
	opts := batch.Options{OutputDir: outputDir, NoUpload: f.noUpload}
	if cmd.Flags().Changed("thumbnail") {
		abs, err := fileutil.AbsPath(f.thumbnail)
		if err != nil {
			return batch.Options{}, fmt.Errorf("--thumbnail: %w", err)
		}
		opts.Thumbnail = abs
	}
	return opts, nil
}
