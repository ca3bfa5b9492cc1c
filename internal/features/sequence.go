package features

// Series is an ordered run of values belonging to one group.
type Series struct {
	Group  string
	Values []float64
}

// CreateSequenceFeatures slides a window of length w over every series and
// pairs each window with the value that follows it. A series of length n
// yields n-w pairs.
func CreateSequenceFeatures(series []Series, w int) ([][]float64, []float64) {
	if w <= 0 {
		return nil, nil
	}
	var windows [][]float64
	var next []float64
	for _, s := range series {
		for i := 0; i+w < len(s.Values); i++ {
			win := make([]float64, w)
			copy(win, s.Values[i:i+w])
			windows = append(windows, win)
			next = append(next, s.Values[i+w])
		}
	}
	return windows, next
}
