// Package classifier turns an intercepted request body into an ordered
// list of ad-lifecycle tags.
//
// The body is expected to be a JSON array of event records of the form
//
//	[{"operationName": "...RecordAdEvent...",
//	  "variables": {"input": {"eventName": "video_ad_impression"}}}]
//
// Each record yields exactly one tag, in array order. A body that is not
// valid JSON, is not an array, or is an empty array yields the single tag
// TagInvalid. Parse failures are outcomes, never errors.
//
// Classification has no state and is safe for concurrent use.
package classifier
