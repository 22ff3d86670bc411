package logging

import (
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 6

// Highlighted keys are shown first, in this order.
var infoHighlightKeys = []string{
	FieldAlert,
	"error",
	FieldErrorHint,
	FieldImpact,
	"status",
	FieldProgressPercent,
	"file",
	"dest",
	"video_id",
	"url",
	"retries",
	"count",
	"pending",
	"failed",
	"completed",
}

// Keys already rendered in the header or only useful to machines.
var infoSkipKeys = []string{
	FieldJobID,
	FieldPhase,
	FieldQueueIndex,
	FieldEventType,
	FieldCorrelationID,
	FieldSessionID,
}

var labelOverrides = map[string]string{
	FieldProgressPercent: "Progress",
	FieldErrorHint:       "Hint",
	"video_id":           "Video ID",
	"url":                "URL",
}

func selectInfoFields(attrs []kv, limit int) ([]infoField, int) {
	if limit <= 0 {
		limit = infoAttrLimit
	}
	candidates := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" || slices.Contains(infoSkipKeys, attr.key) {
			continue
		}
		candidates = append(candidates, attr)
	}
	slices.SortStableFunc(candidates, func(a, b kv) int {
		return highlightRank(a.key) - highlightRank(b.key)
	})

	fields := make([]infoField, 0, min(limit, len(candidates)))
	for _, attr := range candidates {
		if len(fields) == limit {
			break
		}
		fields = append(fields, infoField{label: displayLabel(attr.key), value: displayValue(attr.key, attr.value)})
	}
	return fields, len(candidates) - len(fields)
}

func highlightRank(key string) int {
	if idx := slices.Index(infoHighlightKeys, key); idx >= 0 {
		return idx
	}
	return len(infoHighlightKeys)
}

func displayLabel(key string) string {
	if label, ok := labelOverrides[key]; ok {
		return label
	}
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

func displayValue(key string, v slog.Value) string {
	if key == FieldProgressPercent {
		return formatValue(v) + "%"
	}
	return attrString(v)
}
