package network

// AveragingWindow keeps the mean of the most recent data points, up to a fixed size.
type AveragingWindow struct {
	size   int
	points []float64
	next   int
	sum    float64
}

// NewAveragingWindow creates a window holding at most size points (minimum 1).
func NewAveragingWindow(size int) *AveragingWindow {
	if size < 1 {
		size = 1
	}
	return &AveragingWindow{size: size, points: make([]float64, 0, size)}
}

// Add records a data point, evicting the oldest one when full.
func (w *AveragingWindow) Add(v float64) {
	if len(w.points) < w.size {
		w.points = append(w.points, v)
		w.sum += v
		return
	}
	w.sum += v - w.points[w.next]
	w.points[w.next] = v
	w.next = (w.next + 1) % w.size
}

// Average returns the mean of the stored points; ok is false when empty.
func (w *AveragingWindow) Average() (avg float64, ok bool) {
	if len(w.points) == 0 {
		return 0, false
	}
	return w.sum / float64(len(w.points)), true
}

// Len is the number of stored points.
func (w *AveragingWindow) Len() int {
	return len(w.points)
}

// SpeedBoard tracks one AveragingWindow of mean speed per segment.
type SpeedBoard struct {
	net     *Network
	windows map[string]*AveragingWindow
}

// NewSpeedBoard creates windows of the given size for every segment.
func NewSpeedBoard(net *Network, size int) *SpeedBoard {
	sb := &SpeedBoard{net: net, windows: make(map[string]*AveragingWindow, len(net.Segments()))}
	for _, s := range net.Segments() {
		sb.windows[s.ID] = NewAveragingWindow(size)
	}
	return sb
}

// Observe records a mean speed sample for a segment. Unknown ids are ignored.
func (sb *SpeedBoard) Observe(segmentID string, speed float64) {
	if w, ok := sb.windows[segmentID]; ok {
		w.Add(speed)
	}
}

// MeanSpeed returns the windowed mean speed, falling back to the free-flow
// speed when nothing (or a non-positive mean) was observed.
func (sb *SpeedBoard) MeanSpeed(segmentID string) float64 {
	s, ok := sb.net.Segment(segmentID)
	if !ok {
		return 0
	}
	if w := sb.windows[segmentID]; w != nil {
		if avg, ok := w.Average(); ok && avg > 0 {
			return avg
		}
	}
	return s.Speed
}
