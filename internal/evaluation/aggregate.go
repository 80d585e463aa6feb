package evaluation

// Mean returns the arithmetic mean of each metric across scores.
// An empty score list yields zeros.
func Mean(scores []TrackScore, metrics []Metric) Record {
	out := make(Record, len(metrics))
	for _, m := range metrics {
		out[m] = 0
	}
	if len(scores) == 0 {
		return out
	}

	for _, s := range scores {
		for _, m := range metrics {
			out[m] += s.Metrics[m]
		}
	}

	n := float64(len(scores))
	for _, m := range metrics {
		out[m] /= n
	}
	return out
}

// WeightedMean returns Σ(value·weight)/Σweight for one metric.
// It returns 0 when the total weight is 0.
func WeightedMean(scores []TrackScore, metric Metric) float64 {
	var sum, total float64
	for _, s := range scores {
		sum += s.Metrics[metric] * s.Weight
		total += s.Weight
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// AggregateOverall combines a job's fold summaries into its overall record:
// the arithmetic mean over folds of every metric any fold reports.
func AggregateOverall(foldSummaries []Record) Record {
	out := make(Record)
	if len(foldSummaries) == 0 {
		return out
	}

	for _, summary := range foldSummaries {
		for m, v := range summary {
			out[m] += v
		}
	}

	n := float64(len(foldSummaries))
	for m := range out {
		out[m] /= n
	}
	return out
}

// JobOverall computes a job's overall record from its fold results. Folds
// with no evaluated track carry no evidence and are left out of the mean.
// When no fold has any evaluated track the overall record is the (zero)
// summary of the first fold.
func JobOverall(folds []*FoldResult) Record {
	summaries := make([]Record, 0, len(folds))
	for _, f := range folds {
		if f != nil && f.Evaluated > 0 {
			summaries = append(summaries, f.Summary)
		}
	}
	if len(summaries) == 0 {
		if len(folds) > 0 && folds[0] != nil {
			return folds[0].Summary.Clone()
		}
		return make(Record)
	}
	return AggregateOverall(summaries)
}
