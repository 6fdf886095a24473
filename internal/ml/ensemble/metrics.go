package ensemble

import "stock-oracle/internal/domain"

// computeMetrics scores hard predictions against the holdout labels. Precision and
// F1 are zero when undefined.
func computeMetrics(labels, preds []int, probs []float64) domain.Metrics {
	m := domain.Metrics{
		YTrue: append([]int(nil), labels...),
		YProb: append([]float64(nil), probs...),
	}
	n := len(labels)
	if n == 0 || len(preds) != n {
		return m
	}

	var tp, fp, tn, fn int
	for i := 0; i < n; i++ {
		switch {
		case preds[i] == 1 && labels[i] == 1:
			tp++
		case preds[i] == 1 && labels[i] == 0:
			fp++
		case preds[i] == 0 && labels[i] == 0:
			tn++
		default:
			fn++
		}
	}

	m.Accuracy = float64(tp+tn) / float64(n)
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	recall := 0.0
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+recall > 0 {
		m.F1 = 2 * m.Precision * recall / (m.Precision + recall)
	}
	m.ConfusionMatrix = [2][2]int{{tn, fp}, {fn, tp}}
	return m
}
