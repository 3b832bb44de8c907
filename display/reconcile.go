/*
	This file keeps a display model consistent with whatever dataset is
	currently attached.  Reconciliation runs whenever data is assigned: axes,
	indices, and channel LUTs that don't exist in the new dataset are dropped
	or defaulted with a warning rather than failing, since the model outlives
	any one dataset.
*/

package display

import (
	"fmt"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
)

// Reconcile mutates the model so it is consistent with the given data
// wrapper, returning a warning for each repair.  The dataset must have at
// least 2 dimensions.
func Reconcile(m *ArrayDisplayModel, w data.Wrapper) ([]string, error) {
	shape := w.Shape()
	ndim := len(shape)
	if ndim < 2 {
		return nil, fmt.Errorf("data must have at least 2 dimensions, got %d", ndim)
	}
	var warnings []string

	// Visible axes: truncate to the dataset's dimensionality keeping the
	// trailing (fastest-varying) axes, then make sure each one resolves.
	visible := m.VisibleAxes
	if len(visible) > ndim {
		warnings = append(warnings, fmt.Sprintf(
			"%d visible axes exceed %d-d data; keeping the trailing %d", len(visible), ndim, ndim))
		visible = visible[len(visible)-ndim:]
	}
	resolved := make(map[int]bool, len(visible))
	ok := true
	for _, ax := range visible {
		d, err := w.AxisIndex(ax)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf(
				"cannot visualize axis %s: %v; defaulting visible axes", ax, err))
			ok = false
			break
		}
		resolved[d] = true
	}
	if !ok {
		n := len(visible)
		if n < 2 {
			n = 2
		}
		visible = make([]ndv.AxisKey, 0, n)
		for i := -n; i < 0; i++ {
			visible = append(visible, ndv.Axis(i))
		}
		resolved = make(map[int]bool, n)
		for _, ax := range visible {
			d, _ := w.AxisIndex(ax)
			resolved[d] = true
		}
	}
	m.VisibleAxes = visible

	// Current index: drop entries for axes the new dataset doesn't have, and
	// clamp point positions into range.
	index := make(map[ndv.AxisKey]ndv.Index, len(m.CurrentIndex))
	for key, x := range m.CurrentIndex {
		d, err := w.AxisIndex(key)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("dropping index for axis %s: %v", key, err))
			continue
		}
		if !x.IsSlice() && x.Point() >= shape[d] {
			warnings = append(warnings, fmt.Sprintf(
				"index %d out of range for axis %s (size %d); clamping", x.Point(), key, shape[d]))
			x = ndv.At(shape[d] - 1)
		}
		index[key] = x
	}
	m.CurrentIndex = index

	// Channel axis: clear if it doesn't resolve or collides with a visible
	// axis.
	chDim := -1
	if m.ChannelAxis != nil {
		d, err := w.AxisIndex(*m.ChannelAxis)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf(
				"dropping channel axis %s: %v", *m.ChannelAxis, err))
			m.ChannelAxis = nil
		case resolved[d]:
			warnings = append(warnings, fmt.Sprintf(
				"channel axis %s cannot be in visible axes; clearing channel axis", *m.ChannelAxis))
			m.ChannelAxis = nil
		default:
			chDim = d
		}
	}
	if m.ChannelAxis == nil && m.ChannelMode != Grayscale {
		if guess := data.GuessChannelAxis(w); guess >= 0 && !resolved[guess] {
			ax := ndv.Axis(guess)
			m.ChannelAxis = &ax
			chDim = guess
		}
	}

	// LUTs: prune per-channel entries whose channel position is absent from
	// the new dataset.  The fallback DefaultLUT is always retained.
	limit := ndim
	if chDim >= 0 {
		limit = shape[chDim]
	}
	for ch := range m.LUTs {
		if ch < 0 || ch >= limit {
			warnings = append(warnings, fmt.Sprintf(
				"dropping LUT for channel %d absent from the new dataset", ch))
			delete(m.LUTs, ch)
		}
	}

	// Reducers keyed by axes that no longer exist are inert but confusing;
	// drop them too.
	for key := range m.Reducers {
		if _, err := w.AxisIndex(key); err != nil {
			warnings = append(warnings, fmt.Sprintf("dropping reducer for unknown axis %s", key))
			delete(m.Reducers, key)
		}
	}

	for _, warning := range warnings {
		ndv.Warningf("reconcile: %s\n", warning)
	}
	warnings = append(warnings, m.Validate()...)
	return warnings, nil
}
