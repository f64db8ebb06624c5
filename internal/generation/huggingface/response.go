package huggingface

import (
	"bytes"
	"encoding/json"
)

// Shape identifies which of the known response layouts a text-generation
// payload used.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeObjectList
	ShapeStringList
	ShapeObject
	ShapeString
)

func (s Shape) String() string {
	switch s {
	case ShapeObjectList:
		return "object_list"
	case ShapeStringList:
		return "string_list"
	case ShapeObject:
		return "object"
	case ShapeString:
		return "string"
	default:
		return "unknown"
	}
}

// Response is a decoded text-generation payload. For ShapeUnknown, Text
// holds the raw payload.
type Response struct {
	Shape Shape
	Text  string
}

type generated struct {
	GeneratedText *string `json:"generated_text"`
}

// DecodeResponse classifies a syntactically valid JSON payload into one of
// the known shapes. Anything else decodes as ShapeUnknown.
func DecodeResponse(payload []byte) Response {
	trimmed := bytes.TrimSpace(payload)
	unknown := Response{Shape: ShapeUnknown, Text: string(trimmed)}
	if len(trimmed) == 0 {
		return unknown
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
			return unknown
		}
		first := bytes.TrimSpace(items[0])
		if len(first) == 0 {
			return unknown
		}
		switch first[0] {
		case '{':
			if text, ok := generatedText(first); ok {
				return Response{Shape: ShapeObjectList, Text: text}
			}
		case '"':
			var s string
			if err := json.Unmarshal(first, &s); err == nil {
				return Response{Shape: ShapeStringList, Text: s}
			}
		}
	case '{':
		if text, ok := generatedText(trimmed); ok {
			return Response{Shape: ShapeObject, Text: text}
		}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Response{Shape: ShapeString, Text: s}
		}
	}
	return unknown
}

func generatedText(obj []byte) (string, bool) {
	var g generated
	if err := json.Unmarshal(obj, &g); err != nil || g.GeneratedText == nil {
		return "", false
	}
	return *g.GeneratedText, true
}
