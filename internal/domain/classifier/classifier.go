package classifier

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// Tag is the classification of one event record
type Tag string

const (
	// TagNonAd marks a record that is not an ad-lifecycle operation
	TagNonAd Tag = "non-ad"
	// TagAdStarted marks a video ad impression or quartile
	TagAdStarted Tag = "ad-started"
	// TagAdCompleted marks the end of an ad pod
	TagAdCompleted Tag = "ad-completed"
	// TagAdRendered marks a non-video ad impression
	TagAdRendered Tag = "ad-rendered"
	// TagInvalid marks an undecodable payload or an unknown ad event
	TagInvalid Tag = "invalid"
)

// DefaultOperationMarker is the substring identifying ad-lifecycle records
const DefaultOperationMarker = "RecordAdEvent"

// Event names reported by the player
const (
	EventVideoAdImpression       = "video_ad_impression"
	EventVideoAdQuartileComplete = "video_ad_quartile_complete"
	EventVideoAdPodComplete      = "video_ad_pod_complete"
	EventAdImpression            = "ad_impression"
)

// Batch is the ordered tag list produced from one payload
type Batch []Tag

// Has reports whether the batch contains tag
func (b Batch) Has(tag Tag) bool {
	for _, t := range b {
		if t == tag {
			return true
		}
	}
	return false
}

// Strings returns the tags as plain strings, for logging
func (b Batch) Strings() []string {
	out := make([]string, len(b))
	for i, t := range b {
		out[i] = string(t)
	}
	return out
}

// Decisive returns the single tag that drives the state machine, if any.
// Completion wins over start so a payload carrying both never leaves a
// tab stuck in the ad-playing state.
func (b Batch) Decisive() (Tag, bool) {
	if b.Has(TagAdCompleted) {
		return TagAdCompleted, true
	}
	if b.Has(TagAdStarted) {
		return TagAdStarted, true
	}
	return "", false
}

// Classifier classifies payloads against an operation-name marker
type Classifier struct {
	marker string
}

// New creates a classifier. An empty marker selects DefaultOperationMarker.
func New(marker string) *Classifier {
	if marker == "" {
		marker = DefaultOperationMarker
	}
	return &Classifier{marker: marker}
}

var defaultClassifier = New(DefaultOperationMarker)

// Classify classifies raw with the default marker
func Classify(raw []byte) Batch {
	return defaultClassifier.Classify(raw)
}

// Classify decodes raw as UTF-8 JSON and tags each record in order
func (c *Classifier) Classify(raw []byte) Batch {
	if !utf8.Valid(raw) {
		raw = bytes.ToValidUTF8(raw, []byte("\uFFFD"))
	}

	var records []interface{}
	if err := sonic.Unmarshal(raw, &records); err != nil || len(records) == 0 {
		return Batch{TagInvalid}
	}

	batch := make(Batch, 0, len(records))
	for _, rec := range records {
		batch = append(batch, c.classifyRecord(rec))
	}
	return batch
}

func (c *Classifier) classifyRecord(rec interface{}) Tag {
	obj, ok := rec.(map[string]interface{})
	if !ok {
		return TagNonAd
	}
	op, ok := obj["operationName"].(string)
	if !ok || !strings.Contains(op, c.marker) {
		return TagNonAd
	}

	eventName, _ := lookup(obj, "variables", "input", "eventName").(string)
	switch eventName {
	case EventVideoAdImpression, EventVideoAdQuartileComplete:
		return TagAdStarted
	case EventVideoAdPodComplete:
		return TagAdCompleted
	case EventAdImpression:
		return TagAdRendered
	default:
		return TagInvalid
	}
}

// lookup walks nested objects, returning nil on any missing step
func lookup(obj map[string]interface{}, path ...string) interface{} {
	var cur interface{} = obj
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}
