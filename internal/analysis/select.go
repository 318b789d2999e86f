package analysis

import (
	"fmt"
	"math"
)

// SelectModels picks the frame with the highest mean R² and the frame with
// the lowest mean RMSE. Frames are scanned in the given (ascending split)
// order and only a strictly better value replaces the current best, so ties
// go to the lowest split. NaN metrics never win.
func SelectModels(frames []ModelFrame) (Selection, error) {
	if len(frames) == 0 {
		return Selection{}, fmt.Errorf("%w: no candidate frames", ErrNoValidSplit)
	}

	bestR2, bestRMSE := -1, -1
	for i, f := range frames {
		if !math.IsNaN(f.MeanR2) && (bestR2 < 0 || f.MeanR2 > frames[bestR2].MeanR2) {
			bestR2 = i
		}
		if !math.IsNaN(f.MeanRMSE) && (bestRMSE < 0 || f.MeanRMSE < frames[bestRMSE].MeanRMSE) {
			bestRMSE = i
		}
	}
	if bestR2 < 0 || bestRMSE < 0 {
		return Selection{}, fmt.Errorf("%w: every frame has undefined fit quality", ErrNoValidSplit)
	}
	return Selection{BestR2: frames[bestR2], BestRMSE: frames[bestRMSE]}, nil
}
