/*
	This file supports round-trip serialization of the display model to a JSON
	document, used for saving and restoring viewer state.  Documents are
	checked against an embedded JSON schema before field-by-field decoding.
*/

package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
)

// modelDoc is the JSON document form of ArrayDisplayModel.  Map keys are
// strings since JSON objects require it; axis keys serialize to their string
// form and digit strings decode back to integer positions.
type modelDoc struct {
	VisibleAxes    []ndv.AxisKey           `json:"visible_axes"`
	CurrentIndex   map[string]ndv.Index    `json:"current_index"`
	ChannelMode    string                  `json:"channel_mode"`
	ChannelAxis    *ndv.AxisKey            `json:"channel_axis"`
	Reducers       map[string]data.Reducer `json:"reducers"`
	DefaultReducer data.Reducer            `json:"default_reducer"`
	LUTs           map[string]*LUTModel    `json:"luts"`
	DefaultLUT     *LUTModel               `json:"default_lut"`
}

const modelSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"visible_axes": {
			"type": "array",
			"minItems": 2,
			"maxItems": 3,
			"items": {"type": ["integer", "string"]}
		},
		"current_index": {
			"type": "object",
			"additionalProperties": {
				"type": ["integer", "array"],
				"items": {"type": ["integer", "null"]},
				"minItems": 2,
				"maxItems": 2
			}
		},
		"channel_mode": {
			"type": "string",
			"enum": ["grayscale", "composite", "color", "rgba", "rgb", ""]
		},
		"channel_axis": {"type": ["integer", "string", "null"]},
		"reducers": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"default_reducer": {"type": "string"},
		"luts": {
			"type": "object",
			"additionalProperties": {"type": "object"}
		},
		"default_lut": {"type": "object"}
	}
}`

var compiledModelSchema = jsonschema.MustCompileString("display_model.json", modelSchema)

// parseAxisKeyString reverses AxisKey.String(): digit strings (optionally
// negative) become integer positions, anything else a label.
func parseAxisKeyString(s string) ndv.AxisKey {
	if i, err := strconv.Atoi(s); err == nil {
		return ndv.Axis(i)
	}
	return ndv.NamedAxis(s)
}

// MarshalJSON encodes the model in its document form.
func (m *ArrayDisplayModel) MarshalJSON() ([]byte, error) {
	doc := modelDoc{
		VisibleAxes:    m.VisibleAxes,
		CurrentIndex:   make(map[string]ndv.Index, len(m.CurrentIndex)),
		ChannelMode:    string(m.ChannelMode),
		ChannelAxis:    m.ChannelAxis,
		Reducers:       make(map[string]data.Reducer, len(m.Reducers)),
		DefaultReducer: m.DefaultReducer,
		LUTs:           make(map[string]*LUTModel, len(m.LUTs)),
		DefaultLUT:     m.DefaultLUT,
	}
	for key, x := range m.CurrentIndex {
		doc.CurrentIndex[key.String()] = x
	}
	for key, r := range m.Reducers {
		doc.Reducers[key.String()] = r
	}
	for ch, lut := range m.LUTs {
		doc.LUTs[strconv.Itoa(ch)] = lut
	}
	return json.Marshal(doc)
}

func (m *ArrayDisplayModel) UnmarshalJSON(b []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("display model document is not valid JSON: %v", err)
	}
	if err := compiledModelSchema.Validate(raw); err != nil {
		return fmt.Errorf("display model document failed schema validation: %v", err)
	}

	var doc modelDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}

	out := NewModel()
	if doc.VisibleAxes != nil {
		out.VisibleAxes = doc.VisibleAxes
	}
	if doc.CurrentIndex != nil {
		out.CurrentIndex = make(map[ndv.AxisKey]ndv.Index, len(doc.CurrentIndex))
		for key, x := range doc.CurrentIndex {
			out.CurrentIndex[parseAxisKeyString(key)] = x
		}
	}
	mode, err := ParseChannelMode(doc.ChannelMode)
	if err != nil {
		return err
	}
	out.ChannelMode = mode
	out.ChannelAxis = doc.ChannelAxis
	if doc.Reducers != nil {
		out.Reducers = make(map[ndv.AxisKey]data.Reducer, len(doc.Reducers))
		for key, r := range doc.Reducers {
			out.Reducers[parseAxisKeyString(key)] = r
		}
	}
	if !doc.DefaultReducer.IsZero() {
		out.DefaultReducer = doc.DefaultReducer
	}
	if doc.LUTs != nil {
		out.LUTs = make(map[int]*LUTModel, len(doc.LUTs))
		for key, lut := range doc.LUTs {
			if key == "None" || key == "default" {
				// older saved state kept the fallback inside the lut mapping
				out.DefaultLUT = lut
				continue
			}
			ch, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("lut keys must be channel positions, got %q", key)
			}
			out.LUTs[ch] = lut
		}
	}
	if doc.DefaultLUT != nil {
		out.DefaultLUT = doc.DefaultLUT
	}

	out.Validate()
	*m = *out
	return nil
}

// ParseModel decodes and validates a display model document.
func ParseModel(b []byte) (*ArrayDisplayModel, error) {
	m := new(ArrayDisplayModel)
	if err := json.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}
