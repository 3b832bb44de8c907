package display

import "encoding/json"

// LUTModel is the per-channel display specification: which colormap to apply,
// the contrast limits and gamma, and whether the channel is drawn at all.
type LUTModel struct {
	// Visible toggles drawing of this channel.  Invisible channels are not
	// requested from the data source.
	Visible bool `json:"visible"`

	// Cmap names the colormap used for this channel, e.g. "gray" or "magenta".
	Cmap string `json:"cmap"`

	// Clims are fixed contrast limits.  nil means autoscale from the data
	// using the Autoscale quantile range.
	Clims *[2]float64 `json:"clims"`

	// Gamma is the gamma correction applied after normalization.
	Gamma float64 `json:"gamma"`

	// Autoscale is the [low, high] quantile range used when Clims is nil.
	// (0, 1) means plain min/max.
	Autoscale [2]float64 `json:"autoscale"`
}

// NewLUTModel returns a LUTModel with viewer defaults: visible, gray, full
// min/max autoscale, gamma 1.
func NewLUTModel() *LUTModel {
	return &LUTModel{
		Visible:   true,
		Cmap:      "gray",
		Gamma:     1.0,
		Autoscale: [2]float64{0, 1},
	}
}

// NewChannelLUT returns a visible LUTModel with the given colormap.
func NewChannelLUT(cmap string) *LUTModel {
	m := NewLUTModel()
	m.Cmap = cmap
	return m
}

func (m *LUTModel) UnmarshalJSON(b []byte) error {
	type alias LUTModel
	doc := alias(*NewLUTModel())
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*m = LUTModel(doc)
	return nil
}

// Clone returns a deep copy of the LUTModel.
func (m *LUTModel) Clone() *LUTModel {
	out := *m
	if m.Clims != nil {
		clims := *m.Clims
		out.Clims = &clims
	}
	return &out
}

// Equal reports whether two LUT specifications are identical.
func (m *LUTModel) Equal(o *LUTModel) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Visible != o.Visible || m.Cmap != o.Cmap || m.Gamma != o.Gamma ||
		m.Autoscale != o.Autoscale {
		return false
	}
	if (m.Clims == nil) != (o.Clims == nil) {
		return false
	}
	return m.Clims == nil || *m.Clims == *o.Clims
}
