/*
	Package ngff reads OME-NGFF multiscale image metadata (version 0.4 and
	earlier) and exposes each resolution level as a zarr-backed data source.
*/

package ngff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blang/semver"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tlambert03/ndv/storage"
	"github.com/tlambert03/ndv/zarr"
)

// Axis describes one dimension of a multiscale image.  Order of axes must be
// time (if present), then channel (if present), then 2-3 space axes.
type Axis struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Unit string `json:"unit,omitempty"`
}

// CoordinateTransformation maps array coordinates to physical coordinates.
type CoordinateTransformation struct {
	Type        string    `json:"type"`
	Scale       []float64 `json:"scale,omitempty"`
	Translation []float64 `json:"translation,omitempty"`
}

// DataSet points at the zarr array for one resolution level.
type DataSet struct {
	Path                      string                     `json:"path"`
	CoordinateTransformations []CoordinateTransformation `json:"coordinateTransformations"`
}

// Multiscale is one entry of the "multiscales" attribute.
type Multiscale struct {
	Axes                      []Axis                     `json:"axes"`
	Datasets                  []DataSet                  `json:"datasets"`
	Name                      string                     `json:"name,omitempty"`
	Version                   string                     `json:"version,omitempty"`
	Type                      string                     `json:"type,omitempty"`
	Metadata                  map[string]interface{}     `json:"metadata,omitempty"`
	CoordinateTransformations []CoordinateTransformation `json:"coordinateTransformations,omitempty"`
}

type zattrsDoc struct {
	Multiscales []Multiscale `json:"multiscales"`
}

// maxVersion is the newest multiscales version this reader understands.
var maxVersion = semver.MustParse("0.4.0")

const multiscalesSchema = `{
	"type": "object",
	"required": ["multiscales"],
	"properties": {
		"multiscales": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["axes", "datasets"],
				"properties": {
					"axes": {
						"type": "array",
						"minItems": 2,
						"items": {
							"type": "object",
							"required": ["name"],
							"properties": {
								"name": {"type": "string"},
								"type": {"type": "string"},
								"unit": {"type": "string"}
							}
						}
					},
					"datasets": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["path", "coordinateTransformations"],
							"properties": {
								"path": {"type": "string"},
								"coordinateTransformations": {
									"type": "array",
									"minItems": 1,
									"items": {
										"type": "object",
										"required": ["type"],
										"properties": {
											"type": {"type": "string"},
											"scale": {
												"type": "array",
												"items": {"type": "number"}
											},
											"translation": {
												"type": "array",
												"items": {"type": "number"}
											}
										}
									}
								}
							}
						}
					},
					"name": {"type": "string"},
					"version": {"type": "string"}
				}
			}
		}
	}
}`

var compiledMultiscalesSchema = jsonschema.MustCompileString(
	"ngff-multiscales.json", multiscalesSchema)

// GetMultiscales reads and validates the "multiscales" attribute from the
// ".zattrs" document at the store root.  A missing or attribute-less document
// returns storage.ErrNotFound.
func GetMultiscales(ctx context.Context, store storage.Store) ([]Multiscale, error) {
	raw, err := store.Get(ctx, zarr.AttributesKey)
	if err != nil {
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("bad .zattrs document: %v", err)
	}
	if doc, ok := generic.(map[string]interface{}); !ok || doc["multiscales"] == nil {
		return nil, fmt.Errorf("%w: no multiscales attribute", storage.ErrNotFound)
	}
	if err := compiledMultiscalesSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("invalid multiscales metadata: %v", err)
	}

	var doc zattrsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("bad multiscales metadata: %v", err)
	}
	for _, ms := range doc.Multiscales {
		if err := checkVersion(ms.Version); err != nil {
			return nil, err
		}
		if len(ms.Axes) != countDims(ms) {
			return nil, fmt.Errorf("multiscale %q: axes do not match dataset scales", ms.Name)
		}
	}
	return doc.Multiscales, nil
}

// checkVersion gates on the multiscales version field.  An absent field is
// accepted as the latest supported version.
func checkVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return fmt.Errorf("bad multiscales version %q: %v", version, err)
	}
	if v.GT(maxVersion) {
		return fmt.Errorf("multiscales version %s is newer than supported %s",
			version, maxVersion)
	}
	return nil
}

// countDims returns the dimensionality implied by the first scale transform,
// or the axis count if no scale transform exists to cross-check.
func countDims(ms Multiscale) int {
	for _, ds := range ms.Datasets {
		for _, tf := range ds.CoordinateTransformations {
			if tf.Type == "scale" {
				return len(tf.Scale)
			}
		}
	}
	return len(ms.Axes)
}

// scaleTransform returns the scale vector of a dataset entry.
func scaleTransform(ds DataSet) ([]float64, error) {
	for _, tf := range ds.CoordinateTransformations {
		if tf.Type == "scale" {
			return tf.Scale, nil
		}
	}
	return nil, errors.New("dataset has no scale transformation")
}
