package forecast

import "math"

// CombineEnsemble computes the elementwise mean across the outcomes flagged
// for ensemble membership. At each horizon position the mean covers the
// included columns with a present value there; a position where every
// included column is missing stays missing. Membership is explicit
// configuration, never implicit: outcomes[i] is included iff include[i].
func CombineEnsemble(outcomes []Outcome, include []bool, horizon int) ForecastColumn {
	col := make(ForecastColumn, horizon)
	for pos := 0; pos < horizon; pos++ {
		sum := 0.0
		count := 0
		for i, out := range outcomes {
			if i < len(include) && !include[i] {
				continue
			}
			if pos >= len(out.Column) {
				continue
			}
			if v := out.Column[pos]; !math.IsNaN(v) {
				sum += v
				count++
			}
		}
		if count > 0 {
			col[pos] = sum / float64(count)
		} else {
			col[pos] = math.NaN()
		}
	}
	return col
}
