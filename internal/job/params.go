package job

import (
	"fmt"
	"strings"
)

// CaptionOptions controls caption styling for the generated video.
type CaptionOptions struct {
	Font       string `json:"font,omitempty" toml:"font,omitempty"`
	FontPath   string `json:"fontPath,omitempty" toml:"font_path,omitempty"`
	Style      string `json:"style,omitempty" toml:"style,omitempty"`
	Size       *int   `json:"size,omitempty" toml:"size,omitempty"`
	Position   string `json:"position,omitempty" toml:"position,omitempty"`
	Color      string `json:"color,omitempty" toml:"color,omitempty"`
	Background string `json:"background,omitempty" toml:"background,omitempty"`
}

// IsZero reports whether no caption option is set.
func (c *CaptionOptions) IsZero() bool {
	return c == nil || (c.Font == "" && c.FontPath == "" && c.Style == "" && c.Size == nil &&
		c.Position == "" && c.Color == "" && c.Background == "")
}

// GenerateParams is passed through to the generation engine unchanged.
// Pointer fields distinguish an absent value from an explicit zero.
type GenerateParams struct {
	File              string          `json:"file" toml:"file,omitempty"`
	Output            string          `json:"output,omitempty" toml:"output,omitempty"`
	Captions          string          `json:"captions,omitempty" toml:"captions,omitempty"`
	CaptionOptions    *CaptionOptions `json:"captionOptions,omitempty" toml:"caption_options,omitempty"`
	Background        string          `json:"background,omitempty" toml:"background,omitempty"`
	Intro             string          `json:"intro,omitempty" toml:"intro,omitempty"`
	Outro             string          `json:"outro,omitempty" toml:"outro,omitempty"`
	Watermark         string          `json:"watermark,omitempty" toml:"watermark,omitempty"`
	WatermarkPosition string          `json:"watermarkPosition,omitempty" toml:"watermark_position,omitempty"`
	WatermarkOpacity  *float64        `json:"watermarkOpacity,omitempty" toml:"watermark_opacity,omitempty"`
	WatermarkScale    *float64        `json:"watermarkScale,omitempty" toml:"watermark_scale,omitempty"`
	Width             *int            `json:"width,omitempty" toml:"width,omitempty"`
	Height            *int            `json:"height,omitempty" toml:"height,omitempty"`
	FPS               *int            `json:"fps,omitempty" toml:"fps,omitempty"`
	Title             string          `json:"title,omitempty" toml:"title,omitempty"`
	Description       string          `json:"description,omitempty" toml:"description,omitempty"`
	Tags              []string        `json:"tags,omitempty" toml:"tags,omitempty"`
	PublishAt         string          `json:"publishAt,omitempty" toml:"publish_at,omitempty"`
	Thumbnail         string          `json:"thumbnail,omitempty" toml:"thumbnail,omitempty"`
	Privacy           string          `json:"privacy,omitempty" toml:"privacy,omitempty"`
	PlaylistID        string          `json:"playlistId,omitempty" toml:"playlist_id,omitempty"`
}

var privacyValues = map[string]struct{}{
	"public":   {},
	"unlisted": {},
	"private":  {},
}

// Validate checks the params for values the engine cannot accept.
func (p GenerateParams) Validate() error {
	if strings.TrimSpace(p.File) == "" {
		return fmt.Errorf("%w: file is required", ErrInvalid)
	}
	if p.WatermarkOpacity != nil && (*p.WatermarkOpacity < 0 || *p.WatermarkOpacity > 1) {
		return fmt.Errorf("%w: watermarkOpacity must be between 0 and 1", ErrInvalid)
	}
	if p.WatermarkScale != nil && *p.WatermarkScale <= 0 {
		return fmt.Errorf("%w: watermarkScale must be positive", ErrInvalid)
	}
	for name, value := range map[string]*int{"width": p.Width, "height": p.Height, "fps": p.FPS} {
		if value != nil && *value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalid, name)
		}
	}
	if p.Privacy != "" {
		if _, ok := privacyValues[p.Privacy]; !ok {
			return fmt.Errorf("%w: privacy must be public, unlisted or private", ErrInvalid)
		}
	}
	return nil
}

// Merge layers p over base: every field set on p wins and absent fields
// fall back to base. Absent values never override.
func (p GenerateParams) Merge(base GenerateParams) GenerateParams {
	out := base
	setString(&out.File, p.File)
	setString(&out.Output, p.Output)
	setString(&out.Captions, p.Captions)
	setString(&out.Background, p.Background)
	setString(&out.Intro, p.Intro)
	setString(&out.Outro, p.Outro)
	setString(&out.Watermark, p.Watermark)
	setString(&out.WatermarkPosition, p.WatermarkPosition)
	setString(&out.Title, p.Title)
	setString(&out.Description, p.Description)
	setString(&out.PublishAt, p.PublishAt)
	setString(&out.Thumbnail, p.Thumbnail)
	setString(&out.Privacy, p.Privacy)
	setString(&out.PlaylistID, p.PlaylistID)
	setFloat(&out.WatermarkOpacity, p.WatermarkOpacity)
	setFloat(&out.WatermarkScale, p.WatermarkScale)
	setInt(&out.Width, p.Width)
	setInt(&out.Height, p.Height)
	setInt(&out.FPS, p.FPS)
	if len(p.Tags) > 0 {
		out.Tags = append([]string(nil), p.Tags...)
	} else if len(base.Tags) > 0 {
		out.Tags = append([]string(nil), base.Tags...)
	}
	out.CaptionOptions = mergeCaptions(p.CaptionOptions, base.CaptionOptions)
	return out
}

func mergeCaptions(top, base *CaptionOptions) *CaptionOptions {
	if top.IsZero() && base.IsZero() {
		return nil
	}
	var out CaptionOptions
	if base != nil {
		out = *base
		out.Size = copyInt(base.Size)
	}
	if top != nil {
		setString(&out.Font, top.Font)
		setString(&out.FontPath, top.FontPath)
		setString(&out.Style, top.Style)
		setInt(&out.Size, top.Size)
		setString(&out.Position, top.Position)
		setString(&out.Color, top.Color)
		setString(&out.Background, top.Background)
	}
	return &out
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setInt(dst **int, value *int) {
	if value != nil {
		*dst = copyInt(value)
	}
}

func setFloat(dst **float64, value *float64) {
	if value != nil {
		v := *value
		*dst = &v
	}
}

func copyInt(value *int) *int {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
